// Package publish uploads built installers and their release records to S3.
package publish

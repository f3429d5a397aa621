// Package pkgtool wraps the macOS packaging utilities.
//
// Builder turns component and distribution specs into pkgbuild and
// productbuild argument lists and runs them through a Runner. ExecRunner
// streams tool output into the logger and reports failures as *ToolError,
// keeping the tool's own exit code.
package pkgtool

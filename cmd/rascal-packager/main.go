package main

import "github.com/rascalsoftware/rascal-packager/cmd/rascal-packager/cmd"

func main() {
	cmd.Execute()
}

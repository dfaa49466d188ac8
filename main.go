package main

import "github.com/taskflow/taskflow-mcp/cmd"

// version is stamped at release time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}

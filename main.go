package main

import "github.com/cdp-tools/cdpreq/cmd"

func main() {
	cmd.Execute()
}

package main

import "livecheck/internal/cli"

func main() {
	cli.Execute()
}

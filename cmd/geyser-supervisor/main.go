package main

import "github.com/oshokin/geyser-supervisor/cmd/geyser-supervisor/cmd"

func main() {
	cmd.Execute()
}

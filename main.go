package main

import "github.com/philipparndt/citysolid/internal/cmd"

func main() {
	cmd.Parse()
}

package main

import "github.com/northcutted/pkgextract/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/k1LoW/pixmap/cmd"

func main() {
	cmd.Execute()
}

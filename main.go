package main

import "github.com/lorenz00k/Betriebsanlagen-check/cmd"

func main() {
	cmd.Execute()
}

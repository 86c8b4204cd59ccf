package main

import (
	"github.com/ValentinKolb/dMerge/cmd"
)

func main() {
	cmd.Execute()
}

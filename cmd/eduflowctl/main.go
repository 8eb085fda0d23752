package main

import "go.pilab.hu/eduflow/cmd/eduflowctl/cmd"

func main() {
	cmd.Execute()
}

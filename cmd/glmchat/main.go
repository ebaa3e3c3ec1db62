// Command glmchat is a terminal client for the BigModel GLM models.
package main

import (
	"github.com/diogo/glmchat/internal/commands"
	"github.com/diogo/glmchat/internal/config"
)

func main() {
	config.LoadEnvFiles()
	commands.Execute()
}

package main

import (
	"context"

	"github.com/tbourn/html-downloader-bot/cmd/htmlbot/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}

package main

import (
	"os"

	"github.com/streamforge/vod-platform/internal/app"
)

func main() {
	os.Exit(app.Run("api", run))
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mclauncher/task"
)

func TestProgressLine(t *testing.T) {
	assert.Equal(t, "[ 50%] Downloading", progressLine(task.Progress(0.5, "Downloading")))
	assert.Equal(t, "[100%] Game running", progressLine(task.Event{Kind: task.EventLaunched, Progress: 1, Message: "Game running"}))
	assert.Equal(t, "Downloading minecraft.jar", progressLine(task.Progress(-1, "Downloading minecraft.jar")))
}

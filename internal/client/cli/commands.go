package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/papervault/internal/client/models"
)

const help = `commands:
  add <path>      queue a file for upload
  cancel <id>     cancel a queued or in-flight upload
  list            show queued items and their states
  flush           trigger a manual drain
  status          show connectivity and queue counters
  quit            exit`

func (a *App) commandLoop(ctx context.Context) error {
	fmt.Println(help)

	for {
		fmt.Print("> ")
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return nil
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "add":
			if len(fields) < 2 {
				fmt.Println("usage: add <path>")
				continue
			}
			a.cmdAdd(ctx, fields[1])
		case "cancel":
			if len(fields) < 2 {
				fmt.Println("usage: cancel <id>")
				continue
			}
			a.cmdCancel(ctx, fields[1])
		case "list":
			a.cmdList(ctx)
		case "flush":
			a.cmdFlush(ctx)
		case "status":
			a.cmdStatus(ctx)
		case "quit", "exit":
			return nil
		case "help":
			fmt.Println(help)
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func (a *App) cmdAdd(ctx context.Context, path string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("cannot read %s: %v\n", path, err)
		return
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	localID, err := a.engine.Submit(ctx, filepath.Base(path), mimeType, payload, !a.monitor.IsReachable())
	if err != nil {
		fmt.Printf("queueing failed: %v\n", err)
		return
	}
	fmt.Printf("queued %s as %s\n", filepath.Base(path), localID)

	if a.monitor.IsReachable() {
		if err := a.engine.Drain(ctx); err != nil {
			fmt.Printf("upload failed: %v\n", err)
		}
	} else {
		fmt.Println("offline: the file will be uploaded when the server is reachable")
	}
}

func (a *App) cmdCancel(ctx context.Context, localID string) {
	if err := a.engine.Cancel(ctx, localID); err != nil {
		fmt.Printf("cancel failed: %v\n", err)
		return
	}
	fmt.Printf("cancelled %s\n", localID)
}

func (a *App) cmdList(ctx context.Context) {
	states := []models.SyncState{
		models.SyncStatePending,
		models.SyncStateUploading,
		models.SyncStateFailed,
		models.SyncStateSynced,
	}
	for _, state := range states {
		items, err := a.repo.ListByState(ctx, state)
		if err != nil {
			fmt.Printf("list failed: %v\n", err)
			return
		}
		for _, item := range items {
			line := fmt.Sprintf("%-9s %s  %s (%d bytes)", item.SyncState, item.LocalID, item.FileName, item.ByteSize)
			if item.LastError != "" {
				line += "  error: " + item.LastError
			}
			fmt.Println(line)
		}
	}
}

func (a *App) cmdFlush(ctx context.Context) {
	if err := a.engine.Drain(ctx); err != nil {
		fmt.Printf("flush failed: %v\n", err)
		return
	}
	fmt.Println("flush complete")
}

func (a *App) cmdStatus(ctx context.Context) {
	if a.monitor.IsReachable() {
		fmt.Println("server: reachable")
	} else {
		fmt.Println("server: unreachable")
	}
	for _, state := range []models.SyncState{models.SyncStatePending, models.SyncStateFailed, models.SyncStateSynced} {
		n, err := a.repo.CountByState(ctx, state)
		if err != nil {
			fmt.Printf("status failed: %v\n", err)
			return
		}
		fmt.Printf("%s: %d\n", state, n)
	}
}

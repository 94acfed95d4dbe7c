package util

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// SetupInterruptHandler removes half-written temp folders when the download
// command is interrupted.
func SetupInterruptHandler(outputDir string) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		fmt.Println("\nInterrupt received. Cleaning up...")

		CleanupUnfinishedTempFolders(outputDir)
		RemoveIfEmpty(outputDir)

		os.Exit(1)
	}()
}

// CleanupUnfinishedTempFolders deletes leftover *_tmp chapter folders.
func CleanupUnfinishedTempFolders(outputDir string) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return
	}

	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), "_tmp") {
			full := filepath.Join(outputDir, e.Name())
			if err := os.RemoveAll(full); err != nil {
				fmt.Printf("Error cleaning up %s: %v\n", full, err)
			}
		}
	}
}

func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		_ = os.Remove(dir)
	}
}

func CleanupFolder(folder string) {
	_ = os.RemoveAll(folder)
}

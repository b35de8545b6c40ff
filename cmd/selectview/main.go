/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"selectview/internal/config"
	"selectview/internal/crash"
	"selectview/internal/imagesource"
	applog "selectview/internal/log"
	"selectview/internal/recent"
	"selectview/internal/ui"
	"selectview/internal/version"
)

func usage() {
	fmt.Println("SelectView — image selection tool")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  selectview version|-v|--version      Show version")
	fmt.Println("  selectview info <imageRef>           Print format and dimensions of an image file or URL")
	fmt.Println("  selectview recent                    List recently opened images")
	fmt.Println("  selectview recent clear              Forget all recently opened images")
	fmt.Println("  selectview ui [<imageRef>]           Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// .env is optional; it feeds the SV_* environment overrides below.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Warning: could not load .env:", err)
	}
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	defer crash.Recover()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("SelectView — image selection tool")
			fmt.Println(version.String())
			return
		case "info":
			if len(args) < 3 {
				fmt.Println("info requires <imageRef>")
				usage()
				os.Exit(2)
			}
			ref := args[2]
			l.Info("probe image", slog.String("ref", ref))
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			info, err := imagesource.Probe(ctx, ref)
			if err != nil {
				l.Error("probe failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Ref:    %s\n", info.Ref)
			fmt.Printf("Format: %s\n", info.Format)
			fmt.Printf("Size:   %dx%d\n", info.Width, info.Height)
			return
		case "recent":
			cfg, _, err := config.Load()
			if err != nil {
				l.Warn("config load failed, using defaults", slog.Any("err", err))
			}
			rs, err := recent.Open(cfg.Recent.MaxEntries)
			if err != nil {
				l.Error("open recents failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			defer rs.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if len(args) > 2 && args[2] == "clear" {
				if err := rs.Clear(ctx); err != nil {
					l.Error("clear recents failed", slog.Any("err", err))
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				fmt.Println("Cleared recently opened images.")
				return
			}
			entries, err := rs.List(ctx)
			if err != nil {
				l.Error("list recents failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if len(entries) == 0 {
				fmt.Println("No recently opened images.")
				return
			}
			for _, e := range entries {
				fmt.Printf("%s  %dx%d  opened %d time(s), last %s\n",
					e.Ref, e.Width, e.Height, e.OpenCount, e.LastOpened.Format(time.RFC3339))
			}
			return
		case "ui":
			var ref string
			if len(args) >= 3 {
				ref = args[2]
			}
			if err := ui.Run(ref); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvistad/manhwad/internal/chapters"
	"github.com/kvistad/manhwad/internal/config"
	"github.com/kvistad/manhwad/internal/downloader"
	"github.com/kvistad/manhwad/internal/fetch"
	"github.com/kvistad/manhwad/internal/scrape"
	"github.com/kvistad/manhwad/internal/ui"
	"github.com/kvistad/manhwad/internal/util"
)

var (
	// selection
	flagURL     string
	flagChapter string
	flagRange   string
	flagList    string

	// runtime
	flagOutput         string
	flagImageWorkers   int
	flagChapterWorkers int
	flagKeepFolders    bool
	flagDryRun         bool
	flagSkipBroken     bool
	flagNoBrowser      bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download manhwa chapters and produce CBZ files. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "series page URL")
	downloadCmd.Flags().StringVar(&flagChapter, "chapter", "", "download single chapter by index or label (e.g. 5 or 28.5)")
	downloadCmd.Flags().StringVar(&flagRange, "range", "", "download range of chapters by index (e.g. 5-12)")
	downloadCmd.Flags().StringVar(&flagList, "list", "", "download specific chapter indices (e.g. 1,3,5)")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for CBZ files")
	downloadCmd.Flags().IntVar(&flagImageWorkers, "image-workers", 5, "parallel image downloads per chapter")
	downloadCmd.Flags().IntVar(&flagChapterWorkers, "chapter-workers", 2, "parallel chapter downloads")
	downloadCmd.Flags().BoolVar(&flagKeepFolders, "keep-folders", false, "keep temporary folders")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be downloaded, don’t download")
	downloadCmd.Flags().BoolVar(&flagSkipBroken, "skip-broken", false, "skip failed images instead of failing the whole chapter")
	downloadCmd.Flags().BoolVar(&flagNoBrowser, "no-browser", false, "never fall back to headless Chrome")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"cf_clearance=...; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Output:       flagOutput,
		KeepFolders:  flagKeepFolders,
		DefaultURL:   flagURL,
		DefaultRange: flagRange,
		DefaultList:  flagList,
		Cookie:       flagCookie,
		CookieFile:   flagCookieFile,
		UserAgent:    flagUserAgent,
		SkipBroken:   flagSkipBroken,
	})
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("image-workers") {
		cfg.ImageWorkers = flagImageWorkers
	}
	if cmd.Flags().Changed("chapter-workers") {
		cfg.ChapterWorkers = flagChapterWorkers
	}

	logSvc := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	if cfg.Output == "" {
		cfg.Output = "."
	}
	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

	if cfg.DefaultURL == "" {
		return fmt.Errorf("missing --url and no default_url in config")
	}

	ua := fetch.PickUserAgent(cfg.UserAgent)
	client, err := fetch.NewClient(fetch.ClientOptions{
		Timeout:     cfg.HTTPTimeout(),
		UserAgent:   ua,
		Referer:     cfg.BaseURL + "/",
		Cookie:      cfg.Cookie,
		CookieFile:  cfg.CookieFile,
		DebugLogger: logSvc,
	})
	if err != nil {
		return err
	}

	var pool *fetch.BrowserPool
	if !flagNoBrowser {
		pool = fetch.NewBrowserPool(cfg.BrowserTabs, cfg.NavTimeout(), ua, logSvc)
		defer pool.Close()
	}
	fetcher := fetch.New(client, pool, logSvc)

	ctx := context.Background()
	util.SetupInterruptHandler(cfg.Output)

	html, err := fetcher.Fetch(ctx, cfg.DefaultURL, fetch.Options{
		WaitSelector: `a[href*="/chapter"]`,
		WaitAfter:    cfg.WaitAfter(),
	})
	if err != nil {
		return err
	}

	refs, err := scrape.ParseChapterList(html, cfg.DefaultURL)
	if err != nil {
		return err
	}
	scrape.SortChapters(refs)

	allChapters := chapters.FromRefs(refs)

	if flagChapter == "" && flagRange == "" && flagList == "" &&
		cfg.DefaultRange == "" && cfg.DefaultList == "" {
		fmt.Printf("Found %d chapters on the site.\n\n", len(allChapters))
	}

	finalRange := flagRange
	if finalRange == "" {
		finalRange = cfg.DefaultRange
	}

	finalList := flagList
	if finalList == "" {
		finalList = cfg.DefaultList
	}

	var selected []chapters.Chapter

	if flagChapter != "" {
		direct := chapters.FilterByLabel(allChapters, flagChapter)

		if len(direct) > 0 {
			selected = direct
		} else {
			var idx int
			if _, err := fmt.Sscanf(flagChapter, "%d", &idx); err == nil && idx > 0 {
				selected = chapters.Filter(allChapters, strconv.Itoa(idx), finalRange, finalList)
			} else {
				return fmt.Errorf("chapter '%s' not found", flagChapter)
			}
		}
	} else {
		selected = chapters.Filter(allChapters, "", finalRange, finalList)
	}

	if len(selected) == 0 {
		return fmt.Errorf("no chapters selected")
	}

	if flagDryRun {
		fmt.Printf("Dry-run: %d chapters selected.\n\n", len(selected))
		for i, ch := range selected {
			fmt.Printf("%3d) %s  [%s]\n    %s\n", i+1, ch.Title, ch.Label, ch.URL)
		}
		return nil
	}

	pm := ui.NewProgressManager()
	defer pm.Close()

	stats := &ui.Stats{}
	dl := downloader.New(client, cfg.SkipBroken)
	start := time.Now()

	sem := make(chan struct{}, max(1, cfg.ChapterWorkers))
	var wg sync.WaitGroup

	for _, ch := range selected {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			html, err := fetcher.Fetch(ctx, ch.URL, fetch.Options{
				WaitSelector: "img",
				WaitAfter:    cfg.WaitAfter(),
			})
			if err != nil {
				logSvc.Errorf("Fetch failed for %s (%s): %v\n", ch.Title, ch.Label, err)
				return
			}

			imgs, err := scrape.ParseChapterImages(html, ch.URL)
			if err != nil {
				logSvc.Errorf("No images for %s (%s): %v\n", ch.Title, ch.Label, err)
				return
			}

			handle := pm.Register("Ch." + ch.Label)
			handle.SetTotal(len(imgs.Images))

			tmpFolder := filepath.Join(cfg.Output, ch.FolderName())
			cbzOut := ch.OutputCBZPath(cfg.Output)

			files, bytes, err := dl.DownloadImages(ctx, imgs.Images, tmpFolder, ch.URL, max(1, cfg.ImageWorkers), handle)
			if err != nil {
				logSvc.Errorf("Chapter %s failed: %v\n", ch.Label, err)
				_ = os.RemoveAll(tmpFolder)
				return
			}

			if err := util.CreateCBZ(files, cbzOut); err != nil {
				logSvc.Errorf("CBZ for %s failed: %v\n", ch.Label, err)
				_ = os.RemoveAll(tmpFolder)
				return
			}

			if !cfg.KeepFolders {
				util.CleanupFolder(tmpFolder)
			}

			handle.MarkDone()
			stats.TotalChapters.Add(1)
			stats.TotalImages.Add(int64(len(files)))
			stats.TotalBytes.Add(bytes)
		}()
	}
	wg.Wait()
	pm.Close()

	fmt.Println()
	fmt.Println("Download Summary:")
	fmt.Printf("Chapters: %d\n", stats.TotalChapters.Load())
	fmt.Printf("Images:   %d\n", stats.TotalImages.Load())
	fmt.Printf("Data:     %s\n", util.Human(stats.TotalBytes.Load()))
	fmt.Printf("Time:     %s\n", time.Since(start).Round(time.Second))
	fmt.Println("\nAll done.")

	return nil
}

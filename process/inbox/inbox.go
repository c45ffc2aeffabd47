// Package inbox watches a drop directory for table screenshots and feeds
// them through the recognition pipeline on behalf of one campaign. It lets
// an operator sync photos from a phone into a folder instead of calling the
// upload endpoint by hand.
package inbox

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"

	"shiftfund/models"
	"shiftfund/pkg/pipeline"
	"shiftfund/pkg/shift"
)

// debounce: a file syncing in still receives writes shortly after Create.
const settleDelay = 300 * time.Millisecond

type Watcher struct {
	db         *gorm.DB
	pipe       *pipeline.Pipeline
	dir        string
	campaignID uint
}

func New(db *gorm.DB, pipe *pipeline.Pipeline, dir string, campaignID uint) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var campaign models.Campaign
	if err := db.First(&campaign, campaignID).Error; err != nil {
		return nil, err
	}
	return &Watcher{db: db, pipe: pipe, dir: dir, campaignID: campaignID}, nil
}

// Run processes files already present, then blocks watching for new ones.
func (w *Watcher) Run() {
	for _, name := range w.listImages() {
		w.process(name)
	}
	if err := w.watch(); err != nil {
		log.Printf("inbox watch stopped: %v", err)
	}
}

func (w *Watcher) listImages() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) watch() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return err
	}
	log.Printf("inbox watching %s", w.dir)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				name := filepath.Base(ev.Name)
				if isSupportedExt(name) {
					pending[name] = time.Now()
				}
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > settleDelay {
					delete(pending, name)
					w.process(name)
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("inbox watch error: %v", err)
		}
	}
}

// process runs one image through the pipeline and records the snapshot.
// Processed files move to <dir>/processed so a restart never re-reads them.
func (w *Watcher) process(name string) {
	full := filepath.Join(w.dir, name)
	data, err := os.ReadFile(full)
	if err != nil {
		log.Printf("inbox read %s: %v", name, err)
		return
	}

	var campaign models.Campaign
	if err := w.db.First(&campaign, w.campaignID).Error; err != nil {
		log.Printf("inbox campaign %d: %v", w.campaignID, err)
		return
	}
	opts := pipeline.Options{AdjustmentMinor: campaign.AdjustmentMinor}
	if campaign.Deadline != nil {
		d := shift.DateOf(campaign.Deadline.UTC())
		opts.Deadline = &d
	}

	snap := models.Snapshot{CampaignID: campaign.ID, FileName: name, StorePath: filepath.Join("inbox", name)}
	res, err := w.pipe.Run(context.Background(), data, opts)
	if err != nil {
		log.Printf("inbox recognition failed %s: %v", name, err)
		snap.Failed = true
		snap.FailedReason = err.Error()
		if dbErr := w.db.Create(&snap).Error; dbErr != nil {
			log.Printf("inbox record failed snapshot %s: %v", name, dbErr)
		}
		if err := moveToProcessed(w.dir, name); err != nil {
			log.Printf("inbox move %s: %v", name, err)
		}
		return
	}

	rowsJSON, err := json.Marshal(res.Parse.Rows)
	if err != nil {
		log.Printf("inbox encode rows %s: %v", name, err)
		return
	}
	snap.TotalMinor = res.Parse.TotalMinor
	snap.RowCount = len(res.Parse.Rows)
	snap.Rows = rowsJSON
	if err := w.db.Create(&snap).Error; err != nil {
		log.Printf("inbox save snapshot %s: %v", name, err)
		return
	}
	log.Printf("inbox processed %s: rows=%d total=%d daily=%d per_shift=%d",
		name, snap.RowCount, snap.TotalMinor, res.Target.DailyTargetMinor, res.Target.PerShiftMinor)
	if err := moveToProcessed(w.dir, name); err != nil {
		log.Printf("inbox move %s: %v", name, err)
	}
}

func isSupportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// moveToProcessed tries an atomic rename and falls back to copy+remove
// when the processed dir sits on another filesystem.
func moveToProcessed(dir, name string) error {
	processedDir := filepath.Join(dir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	src := filepath.Join(dir, name)
	dst := filepath.Join(processedDir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	return os.Remove(src)
}

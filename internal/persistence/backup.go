package persistence

import (
	"fmt"
	"os"
	"time"
)

// Tier sizes from spec §4.9 and §6.
const (
	RecentTierSize = 3
	DailyTierSize  = 7
	WeeklyTierSize = 4

	// BackupInterval is the minimum time between rotations, gated by the
	// marker file's mtime.
	BackupInterval = time.Hour

	dailyPromoteAge  = 24 * time.Hour
	weeklyPromoteAge = 7 * 24 * time.Hour
)

// RotateBackups runs the tiered backup rotation described in spec §4.9. It
// is invoked after every successful Save, but is itself gated by the
// "<path>.last_backup" marker file so two rotations never happen within
// BackupInterval of each other, even if Save is called more often than
// that.
func RotateBackups(path string, now time.Time) error {
	marker := path + ".last_backup"
	if info, err := os.Stat(marker); err == nil {
		if now.Sub(info.ModTime()) < BackupInterval {
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat backup marker: %w", err)
	}

	if err := promoteIntoDaily(path, now); err != nil {
		return fmt.Errorf("promoting into daily tier: %w", err)
	}
	if err := shiftTier(recentPath(path, 2), recentPath(path, 3)); err != nil {
		return err
	}
	if err := shiftTier(recentPath(path, 1), recentPath(path, 2)); err != nil {
		return err
	}
	if err := copyFile(path, recentPath(path, 1)); err != nil {
		return fmt.Errorf("copying current file to recent tier: %w", err)
	}

	return touch(marker, now)
}

// promoteIntoDaily moves .bak.3 into the daily tier when the daily tier's
// newest slot is absent or at least 24h old, cascading into the weekly
// tier first if the daily tier's oldest slot needs to move out to make
// room (spec §4.9's recursive promotion rule).
func promoteIntoDaily(path string, now time.Time) error {
	bak3 := recentPath(path, 3)
	bak3Info, err := os.Stat(bak3)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	daily1 := dailyPath(path, 1)
	daily1Info, err := os.Stat(daily1)
	promote := os.IsNotExist(err)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if !promote {
		promote = now.Sub(daily1Info.ModTime()) >= dailyPromoteAge
	}
	if !promote {
		return nil
	}

	if err := promoteIntoWeekly(path, now); err != nil {
		return err
	}

	for i := DailyTierSize - 1; i >= 1; i-- {
		if err := shiftTier(dailyPath(path, i), dailyPath(path, i+1)); err != nil {
			return err
		}
	}
	_ = bak3Info
	return os.Rename(bak3, daily1)
}

// promoteIntoWeekly moves .bak.daily.7 into the weekly tier when the
// weekly tier's newest slot is absent or at least 7 days old. A no-op when
// there is nothing in .bak.daily.7 yet to promote.
func promoteIntoWeekly(path string, now time.Time) error {
	daily7 := dailyPath(path, DailyTierSize)
	if _, err := os.Stat(daily7); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	weekly1 := weeklyPath(path, 1)
	weekly1Info, err := os.Stat(weekly1)
	promote := os.IsNotExist(err)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if !promote {
		promote = now.Sub(weekly1Info.ModTime()) >= weeklyPromoteAge
	}
	if !promote {
		return nil
	}

	for i := WeeklyTierSize - 1; i >= 1; i-- {
		if err := shiftTier(weeklyPath(path, i), weeklyPath(path, i+1)); err != nil {
			return err
		}
	}
	return os.Rename(daily7, weekly1)
}

func recentPath(path string, i int) string { return fmt.Sprintf("%s.bak.%d", path, i) }
func dailyPath(path string, i int) string  { return fmt.Sprintf("%s.bak.daily.%d", path, i) }
func weeklyPath(path string, i int) string { return fmt.Sprintf("%s.bak.weekly.%d", path, i) }

// TierFile describes one backup slot's presence and age, for reporting
// tools that have no business calling RotateBackups themselves.
type TierFile struct {
	Tier     string    `json:"tier"`
	Slot     int       `json:"slot"`
	Path     string    `json:"path"`
	Present  bool      `json:"present"`
	Modified time.Time `json:"modified,omitempty"`
}

// BackupStatus reports the presence and age of every slot in all three
// backup tiers for path, without mutating anything. Grounded on the same
// tier layout RotateBackups writes.
func BackupStatus(path string) []TierFile {
	var out []TierFile
	out = append(out, statusTier("recent", path, RecentTierSize, recentPath)...)
	out = append(out, statusTier("daily", path, DailyTierSize, dailyPath)...)
	out = append(out, statusTier("weekly", path, WeeklyTierSize, weeklyPath)...)
	return out
}

func statusTier(tier, path string, size int, pathFn func(string, int) string) []TierFile {
	files := make([]TierFile, 0, size)
	for i := 1; i <= size; i++ {
		p := pathFn(path, i)
		tf := TierFile{Tier: tier, Slot: i, Path: p}
		if info, err := os.Stat(p); err == nil {
			tf.Present = true
			tf.Modified = info.ModTime()
		}
		files = append(files, tf)
	}
	return files
}

// shiftTier renames src to dst if src exists, overwriting any previous
// contents of dst. It is a no-op, not an error, if src is absent — the
// tier simply isn't full yet.
func shiftTier(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func touch(path string, t time.Time) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, createErr := os.Create(path)
		if createErr != nil {
			return createErr
		}
		f.Close()
	} else if err != nil {
		return err
	}
	return os.Chtimes(path, t, t)
}

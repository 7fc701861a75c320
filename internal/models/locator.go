package models

import (
	"fmt"
	"path"
	"strings"
)

// Locator addresses a document inside the lifecycle layout:
// <root><area>/<market>/<filename>.
type Locator struct {
	Root     string
	Area     string
	Market   string
	Filename string
}

// Key returns the object name of the locator.
func (l Locator) Key() string {
	return l.Root + path.Join(l.Area, l.Market, l.Filename)
}

// In returns the same document addressed in another lifecycle area.
func (l Locator) In(area string) Locator {
	l.Area = area
	return l
}

// WithFilename returns the locator with a different filename.
func (l Locator) WithFilename(name string) Locator {
	l.Filename = name
	return l
}

func (l Locator) String() string {
	return l.Key()
}

// Lifecycle names the three areas documents move between.
type Lifecycle struct {
	Root      string
	Pending   string
	Completed string
	Failed    string
}

// DefaultLifecycle mirrors the production bucket layout.
func DefaultLifecycle() Lifecycle {
	return Lifecycle{
		Root:      "production/products/translations/",
		Pending:   "pending",
		Completed: "completed",
		Failed:    "failed",
	}
}

// Normalize ensures Root is either empty or ends in a slash.
func (lc Lifecycle) Normalize() Lifecycle {
	lc.Root = strings.TrimPrefix(lc.Root, "/")
	if lc.Root != "" && !strings.HasSuffix(lc.Root, "/") {
		lc.Root += "/"
	}
	return lc
}

// Parse splits an object key into its locator. The market is the path
// segment right after the area.
func (lc Lifecycle) Parse(key string) (Locator, error) {
	if !strings.HasPrefix(key, lc.Root) {
		return Locator{}, fmt.Errorf("object %q is outside lifecycle root %q", key, lc.Root)
	}
	parts := strings.Split(strings.TrimPrefix(key, lc.Root), "/")
	if len(parts) != 3 {
		return Locator{}, fmt.Errorf("object %q is not laid out as <area>/<market>/<filename>", key)
	}
	for _, p := range parts {
		if p == "" {
			return Locator{}, fmt.Errorf("object %q has an empty path segment", key)
		}
	}
	switch parts[0] {
	case lc.Pending, lc.Completed, lc.Failed:
	default:
		return Locator{}, fmt.Errorf("object %q is in unknown area %q", key, parts[0])
	}
	return Locator{Root: lc.Root, Area: parts[0], Market: parts[1], Filename: parts[2]}, nil
}

// PendingPrefix returns the listing prefix for pending documents, optionally
// limited to one market.
func (lc Lifecycle) PendingPrefix(market string) string {
	if market == "" {
		return lc.Root + lc.Pending + "/"
	}
	return lc.Root + lc.Pending + "/" + market + "/"
}

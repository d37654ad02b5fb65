package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BuildPlan is what one build invocation has to do
type BuildPlan struct {
	// Compile lists the units whose object artifact is missing or stale
	Compile []SourceUnit
	// Objects maps every current unit to its object artifact, in unit order
	Objects []string
	// LinkRequired is true iff something was compiled or the executable is missing
	LinkRequired bool
}

// Planner decides staleness by modification time only. It does not hash contents, so
// clock skew or a copy that preserves timestamps can make it skip a changed file.
// Removing a source file does not require a link by itself: with nothing stale and
// the executable present, the program keeps the removed unit until the next link.
type Planner struct {
	ObjDir     string
	ObjExt     string
	Executable string
	// Watermark is the newest mtime of files every unit implicitly depends on
	// (headers, the descriptor); artifacts older than it are stale. Zero disables it.
	Watermark time.Time
}

// ObjectPath derives the object artifact of a unit
func (p Planner) ObjectPath(unit SourceUnit) string {
	return filepath.Join(p.ObjDir, filepath.FromSlash(unit.Rel)+p.ObjExt)
}

// Stamp is the mtime a freshly compiled object of unit gets: the newest input time
// observed while planning. Anything saved later is strictly newer and stays stale.
func (p Planner) Stamp(unit SourceUnit) time.Time {
	if p.Watermark.After(unit.ModTime) {
		return p.Watermark
	}
	return unit.ModTime
}

// Plan computes the build plan for units
func (p Planner) Plan(units []SourceUnit) (*BuildPlan, error) {
	plan := &BuildPlan{Objects: make([]string, 0, len(units))}

	for _, unit := range units {
		obj := p.ObjectPath(unit)
		plan.Objects = append(plan.Objects, obj)

		stale, err := p.isStale(unit, obj)
		if err != nil {
			return nil, fmt.Errorf("could not check status of %s: %w", unit.Rel, err)
		}
		if stale {
			plan.Compile = append(plan.Compile, unit)
		}
	}

	if len(plan.Compile) > 0 {
		plan.LinkRequired = true
	} else if _, err := os.Stat(p.Executable); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		plan.LinkRequired = true
	}

	return plan, nil
}

// isStale reports whether obj is missing or older than the unit or the watermark
func (p Planner) isStale(unit SourceUnit, obj string) (bool, error) {
	stat, err := os.Stat(obj)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return true, err
	}

	objTime := stat.ModTime()
	if objTime.Before(unit.ModTime) {
		return true, nil
	}
	if !p.Watermark.IsZero() && objTime.Before(p.Watermark) {
		return true, nil
	}
	return false, nil
}

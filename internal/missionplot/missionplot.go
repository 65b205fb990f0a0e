// Package missionplot renders generated trajectories and conflict markers
// as static images.
package missionplot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/signalsfoundry/drone-deconfliction/core"
	"github.com/signalsfoundry/drone-deconfliction/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// View selects the projection of the 3D tracks.
type View int

const (
	// TopDown plots X against Y.
	TopDown View = iota
	// SideOn plots X against altitude Z.
	SideOn
)

var (
	primaryColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	conflictColor = color.RGBA{R: 230, G: 171, B: 2, A: 220}
)

// Track is one mission's sampled path.
type Track struct {
	ID      string
	Points  []model.Waypoint
	Primary bool
}

// TracksFor collects the generated trajectories of primary and others.
// Missions without a trajectory are skipped.
func TracksFor(primary *core.Mission, others []*core.Mission) []Track {
	tracks := make([]Track, 0, len(others)+1)
	if primary != nil && primary.Generated() {
		tracks = append(tracks, Track{ID: primary.ID, Points: primary.Trajectory(), Primary: true})
	}
	for _, m := range others {
		if m == nil || !m.Generated() {
			continue
		}
		tracks = append(tracks, Track{ID: m.ID, Points: m.Trajectory()})
	}
	return tracks
}

// New builds the plot for tracks and conflicts in the given view.
func New(tracks []Track, conflicts []model.Conflict, view View) (*plot.Plot, error) {
	if len(tracks) == 0 {
		return nil, errors.New("missionplot: no tracks to plot")
	}

	p := plot.New()
	p.Title.Text = "UAV Mission Deconfliction"
	p.X.Label.Text = "X (m)"
	switch view {
	case SideOn:
		p.Y.Label.Text = "Altitude (m)"
	default:
		p.Y.Label.Text = "Y (m)"
	}

	palette := generateColors(len(tracks))
	for i, tr := range tracks {
		pts := make(plotter.XYs, 0, len(tr.Points))
		for _, wp := range tr.Points {
			pts = append(pts, project(wp.Location(), view))
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", tr.ID, err)
		}
		line.Width = vg.Points(1)
		line.Color = palette[i]
		label := tr.ID
		if tr.Primary {
			line.Color = primaryColor
			line.Width = vg.Points(2)
			label = "primary " + tr.ID
		}
		p.Add(line)
		p.Legend.Add(label, line)
	}

	if len(conflicts) > 0 {
		pts := make(plotter.XYs, len(conflicts))
		for i, c := range conflicts {
			pts[i] = project(c.Location, view)
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("conflict markers: %w", err)
		}
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Color = conflictColor
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add("conflict", scatter)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Save renders the plot to path; the format follows the file extension
// (png, svg, pdf, ...).
func Save(path string, tracks []Track, conflicts []model.Conflict, view View) error {
	p, err := New(tracks, conflicts, view)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := p.Save(10*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

// WritePNG renders the plot as PNG to w.
func WritePNG(w io.Writer, tracks []Track, conflicts []model.Conflict, view View) error {
	p, err := New(tracks, conflicts, view)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// ParseView maps "top"/"xy" and "side"/"xz" to a View.
func ParseView(s string) (View, error) {
	switch strings.ToLower(s) {
	case "", "top", "xy":
		return TopDown, nil
	case "side", "xz":
		return SideOn, nil
	default:
		return TopDown, fmt.Errorf("unknown plot view %q", s)
	}
}

func project(loc [3]float64, view View) plotter.XY {
	if view == SideOn {
		return plotter.XY{X: loc[0], Y: loc[2]}
	}
	return plotter.XY{X: loc[0], Y: loc[1]}
}

// generateColors spreads n hues around the colour wheel.
func generateColors(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	q := l * (1 + s)
	if l >= 0.5 {
		q = l + s - l*s
	}
	p := 2*l - q
	conv := func(t float64) uint8 {
		t -= math.Floor(t)
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return conv(h + 1.0/3), conv(h), conv(h - 1.0/3)
}

// Package export writes printable artifacts of a show.
package export

import (
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ivlev/constellation/internal/project"
	"github.com/ivlev/constellation/internal/scene"
)

// Cue is one row of the cue sheet.
type Cue struct {
	Start    float64
	End      float64
	Clip     string
	Target   string
	Position project.Point
	Size     project.Size
}

// Cues lists the placements of p ordered by start time. Placements whose
// clip is missing from the bin are listed with the raw clip id.
func Cues(p *project.Project) []Cue {
	if p == nil {
		return nil
	}
	cues := make([]Cue, 0, len(p.Timeline.Placements))
	for _, pl := range p.Timeline.Placements {
		name := pl.ClipID
		if clip, ok := p.FindClip(pl.ClipID); ok && clip.Name != "" {
			name = clip.Name
		}
		target := "все экраны"
		if pl.TargetNodeID != "" {
			target = pl.TargetNodeID
			if n := scene.FindNode(p.Scene, pl.TargetNodeID); n != nil && n.Name != "" {
				target = n.Name
			}
		}
		cues = append(cues, Cue{
			Start:    pl.Start,
			End:      pl.End(),
			Clip:     name,
			Target:   target,
			Position: pl.Position,
			Size:     pl.Scale,
		})
	}
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	return cues
}

// FormatTime renders seconds as m:ss.cc.
func FormatTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	m := int(sec) / 60
	return fmt.Sprintf("%d:%05.2f", m, sec-float64(m*60))
}

const fontFamily = "Go"

// CueSheet writes a landscape A4 table of the timeline to path.
func CueSheet(p *project.Project, path string) error {
	pdf, err := cueSheet(p)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// cueSheet lays out the document. Text is set in the embedded Go font so
// Cyrillic names print as written.
func cueSheet(p *project.Project) (*gofpdf.Fpdf, error) {
	if p == nil {
		return nil, fmt.Errorf("no project loaded")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	pdf.SetTitle(p.Name, true)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, p.Name, "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Duration %s, %d clips, %d placements",
		FormatTime(p.Timeline.DurationSeconds), len(p.Media), len(p.Timeline.Placements)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	cols := []struct {
		title string
		width float64
	}{
		{"#", 10}, {"Start", 25}, {"End", 25}, {"Clip", 90}, {"Target", 60}, {"Pos", 30}, {"Size", 30},
	}
	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", 9)
	for i, cue := range Cues(p) {
		size := "natural"
		if cue.Size.X > 0 || cue.Size.Y > 0 {
			size = fmt.Sprintf("%dx%d", cue.Size.X, cue.Size.Y)
		}
		row := []string{
			fmt.Sprint(i + 1),
			FormatTime(cue.Start),
			FormatTime(cue.End),
			cue.Clip,
			cue.Target,
			fmt.Sprintf("%d,%d", cue.Position.X, cue.Position.Y),
			size,
		}
		for j, c := range cols {
			pdf.CellFormat(c.width, 6, row[j], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf, pdf.Error()
}

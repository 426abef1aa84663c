package canvas

import (
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

var (
	black = color.NRGBA{A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
)

type run struct {
	face  font.Face
	color color.Color
	lines []string
	gap   float64
}

// block is a column of wrapped text runs laid out top to bottom.
type block struct {
	width float64
	align gg.Align
	runs  []run
}

func (bl *block) add(dc *gg.Context, face font.Face, c color.Color, text string, gapAfter float64) {
	dc.SetFontFace(face)
	var lines []string
	for _, para := range splitBreaks(text) {
		wrapped := dc.WordWrap(para, bl.width)
		if len(wrapped) == 0 {
			wrapped = []string{""}
		}
		lines = append(lines, wrapped...)
	}
	bl.runs = append(bl.runs, run{face: face, color: c, lines: lines, gap: gapAfter})
}

func (bl *block) empty() bool {
	return len(bl.runs) == 0
}

func (bl *block) height() float64 {
	var h float64
	for i, r := range bl.runs {
		h += float64(len(r.lines)) * lineHeight(r.face)
		if i < len(bl.runs)-1 {
			h += r.gap
		}
	}
	return h
}

func (bl *block) draw(dc *gg.Context, x, y float64) {
	ax := 0.0
	switch bl.align {
	case gg.AlignCenter:
		ax = 0.5
	case gg.AlignRight:
		ax = 1
	}
	for _, r := range bl.runs {
		dc.SetFontFace(r.face)
		dc.SetColor(r.color)
		ascent := float64(r.face.Metrics().Ascent.Ceil())
		for _, line := range r.lines {
			dc.DrawStringAnchored(line, x+ax*bl.width, y+ascent, ax, 0)
			y += lineHeight(r.face)
		}
		y += r.gap
	}
}

// drawFitted draws the block at y, scaling it down into maxHeight when it
// does not fit. It returns the height used.
func drawFitted(dc *gg.Context, bl *block, x, y, maxHeight float64) float64 {
	h := bl.height()
	if h <= maxHeight || maxHeight < 1 {
		bl.draw(dc, x, y)
		return h
	}
	off := gg.NewContext(int(math.Ceil(bl.width)), int(math.Ceil(h)))
	bl.draw(off, 0, 0)
	fitted := imaging.Fit(off.Image(), int(bl.width), int(maxHeight), imaging.Lanczos)
	dc.DrawImageAnchored(fitted, int(x+bl.width/2), int(y), 0.5, 0)
	return float64(fitted.Bounds().Dy())
}

func lineHeight(face font.Face) float64 {
	return float64(face.Metrics().Height.Ceil()) * lineGap
}

func splitBreaks(s string) []string {
	s = strings.NewReplacer("<br />", "\n", "<br/>", "\n", "<br>", "\n").Replace(s)
	return strings.Split(s, "\n")
}

func drawHello(r *Renderer, dc *gg.Context, b box, p params) error {
	return drawTitleAndBody(r, dc, b.inset(24), p)
}

func drawNotice(r *Renderer, dc *gg.Context, b box, p params) error {
	return drawTitleAndBody(r, dc, panel(dc, b, p), p)
}

// drawTitleAndBody centers a bold title above a body text block.
func drawTitleAndBody(r *Renderer, dc *gg.Context, c box, p params) error {
	title := strings.TrimSpace(p.str("title", ""))
	text := p.str("text", "")

	titleFace, err := r.fonts.face(p.str("title_font", ""), true, p.num("title_size", 96))
	if err != nil {
		return err
	}
	bodyFace, err := r.fonts.face(p.str("body_font", ""), false, p.num("font_size", 48))
	if err != nil {
		return err
	}

	head := &block{width: c.w, align: gg.AlignCenter}
	if title != "" {
		head.add(dc, titleFace, parseColor(p.str("title_color", ""), black), title, 0)
	}
	body := &block{width: c.w, align: gg.AlignCenter}
	if strings.TrimSpace(text) != "" {
		body.add(dc, bodyFace, parseColor(p.str("text_color", ""), black), text, 0)
	}

	var gap float64
	if !head.empty() && !body.empty() {
		gap = lineHeight(bodyFace) / 2
	}
	headH := head.height()
	bodyH := body.height()
	bodyMax := c.h - headH - gap
	if p.flag("auto_fit") && bodyH > bodyMax {
		bodyH = math.Max(bodyMax, 0)
	}

	y := c.y + math.Max(0, (c.h-headH-gap-bodyH)/2)
	head.draw(dc, c.x, y)
	y += headH + gap
	if body.empty() {
		return nil
	}
	if p.flag("auto_fit") {
		drawFitted(dc, body, c.x, y, bodyMax)
		return nil
	}
	body.draw(dc, c.x, y)
	return nil
}

func drawDashboard(r *Renderer, dc *gg.Context, b box, p params) error {
	c := panel(dc, b, p)
	accent := parseColor(p.str("accent_color", ""), blue)
	ink := parseColor(p.str("text_color", ""), black)
	titleFont := p.str("title_font", "")
	bodyFont := p.str("body_font", "")
	bodySize := p.num("body_size", 28)

	dateFace, err := r.fonts.face(bodyFont, true, bodySize)
	if err != nil {
		return err
	}
	tempFace, err := r.fonts.face(titleFont, true, p.num("title_size", 56))
	if err != nil {
		return err
	}
	bodyFace, err := r.fonts.face(bodyFont, false, bodySize)
	if err != nil {
		return err
	}

	unit := p.str("temp_unit", "")
	head := &block{width: c.w, align: gg.AlignLeft}
	head.add(dc, dateFace, accent, p.str("date_de", ""), bodySize/3)
	head.add(dc, tempFace, ink, p.str("temp", "")+unit, bodySize/4)
	if desc := strings.TrimSpace(p.str("desc", "")); desc != "" {
		head.add(dc, bodyFace, ink, desc, 0)
	}
	head.add(dc, bodyFace, ink, "Min "+p.str("tmin", "")+unit+"  ·  Max "+p.str("tmax", "")+unit, 0)

	y := c.y
	head.draw(dc, c.x, y)
	y += head.height() + bodySize/2

	y = divider(dc, c, y, accent) + bodySize/2
	drawNews(dc, c, y, p.list("news"), bodyFace, ink)
	return nil
}

func drawHeadlines(r *Renderer, dc *gg.Context, b box, p params) error {
	c := panel(dc, b, p)
	accent := parseColor(p.str("accent_color", ""), blue)
	ink := parseColor(p.str("text_color", ""), black)
	bodySize := p.num("body_size", 28)

	bodyFace, err := r.fonts.face(p.str("body_font", ""), false, bodySize)
	if err != nil {
		return err
	}

	y := c.y
	if title := strings.TrimSpace(p.str("title", "")); title != "" {
		titleFace, err := r.fonts.face(p.str("title_font", ""), true, p.num("title_size", 40))
		if err != nil {
			return err
		}
		head := &block{width: c.w, align: gg.AlignLeft}
		head.add(dc, titleFace, accent, title, 0)
		head.draw(dc, c.x, y)
		y += head.height() + bodySize/2
		y = divider(dc, c, y, accent) + bodySize/2
	}
	drawNews(dc, c, y, p.list("news"), bodyFace, ink)
	return nil
}

func divider(dc *gg.Context, c box, y float64, col color.Color) float64 {
	dc.SetColor(col)
	dc.SetLineWidth(2)
	dc.DrawLine(c.x, y, c.x+c.w, y)
	dc.Stroke()
	return y + 2
}

func drawNews(dc *gg.Context, c box, y float64, news []string, face font.Face, ink color.Color) {
	if len(news) == 0 {
		return
	}
	list := &block{width: c.w, align: gg.AlignLeft}
	gap := lineHeight(face) / 3
	for _, item := range news {
		list.add(dc, face, ink, "• "+item, gap)
	}
	drawFitted(dc, list, c.x, y, c.y+c.h-y)
}

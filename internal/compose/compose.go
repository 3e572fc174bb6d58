// Package compose renders the 1080x1350 share card used for static
// social previews: the generated image in a rounded panel on a purple
// gradient, with the caption in a white card beneath.
package compose

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

const (
	cardWidth  = 1080
	cardHeight = 1350
	panelSize  = 1000
	fontSize   = 48
)

// hangulFontPaths lists common install locations of TrueType fonts with
// Hangul coverage. Only .ttf files: truetype.Parse cannot read CFF-based
// OTF collections like Noto Sans CJK.
var hangulFontPaths = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothicBold.ttf",
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/truetype/nanum/NanumBarunGothic.ttf",
	"/usr/share/fonts/truetype/unfonts-core/UnDotumBold.ttf",
	"/usr/share/fonts/truetype/unfonts-core/UnDotum.ttf",
	"/usr/share/fonts/truetype/baekmuk/dotum.ttf",
	"/Library/Fonts/NanumGothic.ttf",
}

// Composer renders share cards.
type Composer struct {
	client *http.Client
	face   font.Face
}

// New creates a Composer.
func New() (*Composer, error) {
	face, err := loadCaptionFace()
	if err != nil {
		return nil, err
	}
	return &Composer{
		client: &http.Client{Timeout: 30 * time.Second},
		face:   face,
	}, nil
}

// loadCaptionFace picks the caption font. Captions are Korean, so a
// system font with Hangul glyphs is preferred; the embedded Go Bold
// face keeps rendering working when none is installed.
func loadCaptionFace() (font.Face, error) {
	for _, path := range hangulFontPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parsed, err := truetype.Parse(raw)
		if err != nil {
			continue
		}
		return truetype.NewFace(parsed, &truetype.Options{Size: fontSize}), nil
	}
	parsed, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: fontSize}), nil
}

// Render draws the share card and returns it as PNG bytes. imageRef may
// be a data URL or a remote URL; an empty imageRef renders the caption
// card alone.
func (c *Composer) Render(ctx context.Context, text, imageRef string) ([]byte, error) {
	dc := gg.NewContext(cardWidth, cardHeight)

	// Background gradient.
	grad := gg.NewLinearGradient(0, 0, cardWidth, cardHeight)
	grad.AddColorStop(0, parseHex("#667eea"))
	grad.AddColorStop(1, parseHex("#764ba2"))
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, cardWidth, cardHeight)
	dc.Fill()

	panelBottom := 40.0
	if imageRef != "" {
		img, err := c.loadImage(ctx, imageRef)
		if err != nil {
			return nil, err
		}
		drawImagePanel(dc, img)
		panelBottom = 40 + panelSize
	}

	if err := c.drawCaption(dc, text, panelBottom+30); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encoding card: %w", err)
	}
	return buf.Bytes(), nil
}

// loadImage resolves a data URL or remote URL into a decoded image.
func (c *Composer) loadImage(ctx context.Context, ref string) (image.Image, error) {
	var raw []byte
	if strings.HasPrefix(ref, "data:") {
		idx := strings.Index(ref, "base64,")
		if idx < 0 {
			return nil, fmt.Errorf("unsupported data URL encoding")
		}
		decoded, err := base64.StdEncoding.DecodeString(ref[idx+len("base64,"):])
		if err != nil {
			return nil, fmt.Errorf("decoding data URL: %w", err)
		}
		raw = decoded
	} else {
		req, err := http.NewRequestWithContext(ctx, "GET", ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching image: HTTP %d", resp.StatusCode)
		}
		raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// drawImagePanel scales the image to cover the rounded 1000x1000 panel.
func drawImagePanel(dc *gg.Context, img image.Image) {
	x := float64(cardWidth-panelSize) / 2
	y := 40.0

	dc.Push()
	dc.DrawRoundedRectangle(x, y, panelSize, panelSize, 20)
	dc.Clip()

	bounds := img.Bounds()
	scale := float64(panelSize) / float64(bounds.Dx())
	if s := float64(panelSize) / float64(bounds.Dy()); s > scale {
		scale = s
	}
	dc.Translate(x, y)
	dc.Scale(scale, scale)
	dc.DrawImage(img, 0, 0)
	dc.Pop()
	dc.ResetClip()
}

// drawCaption renders the caption in a centered white rounded card.
func (c *Composer) drawCaption(dc *gg.Context, text string, top float64) error {
	dc.SetFontFace(c.face)

	maxTextWidth := 780.0
	lines := dc.WordWrap(text, maxTextWidth)
	lineHeight := fontSize * 1.4
	textHeight := float64(len(lines)) * lineHeight

	cardW := 900.0
	cardH := textHeight + 80
	x := float64(cardWidth-int(cardW)) / 2

	dc.SetRGBA(1, 1, 1, 0.95)
	dc.DrawRoundedRectangle(x, top, cardW, cardH, 20)
	dc.Fill()

	dc.SetRGB255(0x1f, 0x29, 0x37)
	for i, line := range lines {
		y := top + 40 + float64(i)*lineHeight + fontSize*0.8
		w, _ := dc.MeasureString(line)
		dc.DrawString(line, float64(cardWidth)/2-w/2, y)
	}
	return nil
}

func parseHex(hex string) colorRGB {
	var r, g, b uint8
	fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	return colorRGB{r, g, b}
}

type colorRGB struct {
	R, G, B uint8
}

func (c colorRGB) RGBA() (r, g, b, a uint32) {
	return uint32(c.R) * 0x101, uint32(c.G) * 0x101, uint32(c.B) * 0x101, 0xffff
}

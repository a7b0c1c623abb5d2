package stub

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	captchaTTL    = 2 * time.Minute
	captchaWidth  = 160
	captchaHeight = 60
	glyphScale    = 5
)

// mathCaptcha produces an arithmetic challenge and its answer. Subtraction
// never goes negative and multiplication keeps both operands small.
func mathCaptcha(r *rand.Rand) (expr string, answer int) {
	x, y := r.IntN(10), r.IntN(10)
	switch r.IntN(3) {
	case 0:
		return fmt.Sprintf("%d+%d=?", x, y), x + y
	case 1:
		if x < y {
			x, y = y, x
		}
		return fmt.Sprintf("%d-%d=?", x, y), x - y
	default:
		x, y = r.IntN(6)+1, r.IntN(6)+1
		return fmt.Sprintf("%dx%d=?", x, y), x * y
	}
}

// 3x5 bitmap glyphs, one string per row.
var glyphs = map[rune][5]string{ //nolint:gochecknoglobals // read-only font table
	'0': {"###", "#.#", "#.#", "#.#", "###"},
	'1': {".#.", "##.", ".#.", ".#.", "###"},
	'2': {"###", "..#", "###", "#..", "###"},
	'3': {"###", "..#", "###", "..#", "###"},
	'4': {"#.#", "#.#", "###", "..#", "..#"},
	'5': {"###", "#..", "###", "..#", "###"},
	'6': {"###", "#..", "###", "#.#", "###"},
	'7': {"###", "..#", "..#", "..#", "..#"},
	'8': {"###", "#.#", "###", "#.#", "###"},
	'9': {"###", "#.#", "###", "..#", "###"},
	'+': {"...", ".#.", "###", ".#.", "..."},
	'-': {"...", "...", "###", "...", "..."},
	'x': {"...", "#.#", ".#.", "#.#", "..."},
	'=': {"...", "###", "...", "###", "..."},
	'?': {"###", "..#", ".##", "...", ".#."},
}

// renderCaptcha draws expr onto a noisy PNG.
func renderCaptcha(r *rand.Rand, expr string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, captchaWidth, captchaHeight))
	bg := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	for y := range captchaHeight {
		for x := range captchaWidth {
			img.Set(x, y, bg)
		}
	}
	for range 300 {
		img.Set(r.IntN(captchaWidth), r.IntN(captchaHeight), color.RGBA{
			R: uint8(r.IntN(200)), G: uint8(r.IntN(200)), B: uint8(r.IntN(200)), A: 255,
		})
	}

	ink := color.RGBA{R: 30, G: 60, B: 140, A: 255}
	advance := 4 * glyphScale
	x0 := (captchaWidth - len(expr)*advance) / 2
	y0 := (captchaHeight - 5*glyphScale) / 2
	for i, ch := range expr {
		g, ok := glyphs[ch]
		if !ok {
			continue
		}
		jitter := r.IntN(5) - 2
		for row, line := range g {
			for col, px := range line {
				if px != '#' {
					continue
				}
				for dy := range glyphScale {
					for dx := range glyphScale {
						img.Set(x0+i*advance+col*glyphScale+dx, y0+jitter+row*glyphScale+dy, ink)
					}
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type captchaEntry struct {
	answer    string
	expiresAt time.Time
}

// captchaStore holds pending answers keyed by uuid. Each answer is single use.
type captchaStore struct {
	mu      sync.Mutex
	entries map[string]captchaEntry
	rnd     *rand.Rand
	now     func() time.Time
}

func newCaptchaStore(now func() time.Time) *captchaStore {
	seed := uint64(time.Now().UnixNano())
	return &captchaStore{
		entries: make(map[string]captchaEntry),
		rnd:     rand.New(rand.NewPCG(seed, seed>>1)), //nolint:gosec // captcha noise, not a secret
		now:     now,
	}
}

// issue creates a challenge and returns its uuid and base64 PNG.
func (c *captchaStore) issue() (id, img string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expr, answer := mathCaptcha(c.rnd)
	raw, err := renderCaptcha(c.rnd, expr)
	if err != nil {
		return "", "", err
	}
	id = strings.ReplaceAll(uuid.NewString(), "-", "")
	now := c.now()
	c.sweep(now)
	c.entries[id] = captchaEntry{answer: strconv.Itoa(answer), expiresAt: now.Add(captchaTTL)}
	return id, base64.StdEncoding.EncodeToString(raw), nil
}

// verify consumes the challenge for id.
func (c *captchaStore) verify(id, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	delete(c.entries, id)
	if !ok || !c.now().Before(e.expiresAt) {
		return ErrCaptchaExpired
	}
	if strings.TrimSpace(code) != e.answer {
		return ErrCaptchaWrong
	}
	return nil
}

// peek returns the pending answer without consuming it.
func (c *captchaStore) peek(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e.answer, ok
}

func (c *captchaStore) sweep(now time.Time) {
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/cbegin/polypot-go"
	"github.com/cbegin/polypot-go/internal/knobs"
	"github.com/cbegin/polypot-go/internal/qwerty"
	"github.com/cbegin/polypot-go/internal/synth"
)

const (
	windowW    = 1100
	windowH    = 760
	minWindowW = 980
	minWindowH = 700

	keyVelocity = 100
	pianoKeys   = 25
)

var (
	voiceIdleColor      = color.RGBA{40, 42, 52, 255}
	voiceSoundingColor  = color.RGBA{60, 180, 90, 255}
	voiceReleasingColor = color.RGBA{200, 150, 40, 255}
	whiteKeyColor       = color.RGBA{235, 235, 235, 255}
	blackKeyColor       = color.RGBA{20, 20, 24, 255}
)

// keyRunes maps the physical piano keys to the runes of qwerty's layout.
var keyRunes = map[ebiten.Key]rune{
	ebiten.KeyZ: 'z', ebiten.KeyS: 's', ebiten.KeyX: 'x', ebiten.KeyD: 'd',
	ebiten.KeyC: 'c', ebiten.KeyV: 'v', ebiten.KeyG: 'g', ebiten.KeyB: 'b',
	ebiten.KeyH: 'h', ebiten.KeyN: 'n', ebiten.KeyJ: 'j', ebiten.KeyM: 'm',
	ebiten.KeyComma: ',',
	ebiten.KeyQ: 'q', ebiten.Key2: '2', ebiten.KeyW: 'w', ebiten.Key3: '3',
	ebiten.KeyE: 'e', ebiten.KeyR: 'r', ebiten.Key5: '5', ebiten.KeyT: 't',
	ebiten.Key6: '6', ebiten.KeyY: 'y', ebiten.Key7: '7', ebiten.KeyU: 'u',
	ebiten.KeyI: 'i',
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func noteName(n uint8) string {
	return fmt.Sprintf("%s%d", noteNames[n%12], int(n/12)-1)
}

type game struct {
	player     *polypot.Player
	tap        *scopeTap
	sampleRate int

	layout qwerty.Layout
	held   map[ebiten.Key]uint8

	sliders  []slider
	dragging int

	scopeImg *ebiten.Image
	snap     [fftSize]float32
	fftBuf   [fftSize]complex128
	specBins []float64
	wavePeak float64

	status    string
	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(pl *polypot.Player, tap *scopeTap) *game {
	g := &game{
		player:     pl,
		tap:        tap,
		sampleRate: pl.SampleRate(),
		layout:     qwerty.NewLayout(qwerty.DefaultBaseNote),
		held:       make(map[ebiten.Key]uint8),
		dragging:   -1,
		status:     "Play with Z..M / Q..I, -/= octave, space all off",
		textCache:  make(map[string]*ebiten.Image, 1024),
		viewW:      windowW,
		viewH:      windowH,
	}
	bank := pl.Knobs()
	for k := knobs.Attack; k < knobs.NumKnobs; k++ {
		g.sliders = append(g.sliders, slider{
			label: fmt.Sprintf("%-8s", k),
			value: func() float64 { return float64(bank.Value(k)) },
			set:   func(v float64) { bank.Set(k, float32(v)) },
			format: func(float64) string {
				env := bank.Envelope()
				switch k {
				case knobs.Attack:
					return fmt.Sprintf("%.3fs", env.Attack)
				case knobs.Decay:
					return fmt.Sprintf("%.3fs", env.Decay)
				case knobs.Sustain:
					return fmt.Sprintf("%.2f", env.Sustain)
				}
				return fmt.Sprintf("%.3fs", env.Release)
			},
		})
	}
	g.sliders = append(g.sliders, slider{
		label:  "Volume  ",
		value:  pl.MasterVolume,
		set:    pl.SetMasterVolume,
		format: func(v float64) string { return fmt.Sprintf("%d%%", int(v*100+0.5)) },
	})
	return g
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	g.handleKeys()
	g.handleMouse()
	return nil
}

// handleKeys plays notes while piano keys are held. The note is remembered
// per key so an octave shift never strands a sounding voice.
func (g *game) handleKeys() {
	for key, r := range keyRunes {
		if inpututil.IsKeyJustPressed(key) {
			if n, ok := g.layout.NoteFor(r); ok {
				g.player.Dispatch(polypot.NoteOn(n, keyVelocity))
				g.held[key] = n
			}
		}
		if inpututil.IsKeyJustReleased(key) {
			if n, ok := g.held[key]; ok {
				g.player.Dispatch(polypot.NoteOff(n, 0))
				delete(g.held, key)
			}
		}
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		g.shift(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		g.shift(1)
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.player.Dispatch(polypot.AllNotesOff())
		clear(g.held)
		g.status = "All notes off"
	}
}

func (g *game) shift(delta int) {
	if g.layout.Shift(delta) {
		g.status = fmt.Sprintf("Octave %+d", g.layout.Octave())
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		for i, r := range l.sliders {
			if pointInRect(mx, my, r) {
				g.dragging = i
			}
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = -1
		return
	}
	if g.dragging >= 0 {
		g.sliders[g.dragging].set(sliderValue(mx, l.sliders[g.dragging]))
	}
}

type uiLayout struct {
	sliders []image.Rectangle
	voices  image.Rectangle
	scope   image.Rectangle
	piano   image.Rectangle
	status  image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	const pad, rowH = 16, 48
	w, h := g.viewW, g.viewH
	half := w / 2
	var l uiLayout
	y := pad
	for range g.sliders {
		l.sliders = append(l.sliders, image.Rect(pad, y, half-pad/2, y+rowH))
		y += rowH + 8
	}
	l.voices = image.Rect(half+pad/2, pad, w-pad, y-8)
	l.status = image.Rect(pad, h-pad-40, w-pad, h-pad)
	l.piano = image.Rect(pad, l.status.Min.Y-pad-140, w-pad, l.status.Min.Y-pad)
	l.scope = image.Rect(pad, y+8, w-pad, l.piano.Min.Y-pad)
	return l
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()
	for i, r := range l.sliders {
		g.drawSlider(screen, r, g.sliders[i])
	}
	voices := g.player.VoiceStates()
	g.drawVoices(screen, l.voices, voices)
	g.drawDarkPanel(screen, l.scope)
	g.drawScope(screen, l.scope)
	g.drawPiano(screen, l.piano, voices)
	g.drawSunkenPanel(screen, l.status)
	msg := fmt.Sprintf("%d/%d voices  %s", g.player.ActiveVoices(), polypot.Voices, g.status)
	g.drawText(screen, shortenEnd(msg, max(8, (l.status.Dx()-16)/charW)), l.status.Min.X+8, l.status.Min.Y+6)
}

func (g *game) drawVoices(screen *ebiten.Image, rect image.Rectangle, voices [polypot.Voices]polypot.VoiceInfo) {
	g.drawSunkenPanel(screen, rect)
	const cols = 4
	rows := (len(voices) + cols - 1) / cols
	cellW := (rect.Dx() - 16) / cols
	cellH := (rect.Dy() - 16) / rows
	for i, v := range voices {
		x := rect.Min.X + 8 + (i%cols)*cellW
		y := rect.Min.Y + 8 + (i/cols)*cellH
		cell := image.Rect(x+4, y+4, x+cellW-4, y+cellH-4)
		fill := voiceIdleColor
		label := "idle"
		switch v.State {
		case synth.Sounding:
			fill, label = voiceSoundingColor, noteName(v.Note)
		case synth.Releasing:
			fill, label = voiceReleasingColor, noteName(v.Note)
		}
		ebitenutil.DrawRect(screen, float64(cell.Min.X), float64(cell.Min.Y), float64(cell.Dx()), float64(cell.Dy()), fill)
		drawBorder(screen, cell)
		g.drawText(screen, fmt.Sprintf("%d", i+1), cell.Min.X+6, cell.Min.Y+4)
		g.drawText(screen, label, cell.Min.X+6, cell.Max.Y-lineH-4)
	}
}

func isBlack(n int) bool {
	switch n % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// drawPiano shows the two octaves under the keyboard rows, lit by what the
// voices are playing, whether the notes came from the keys or from MIDI.
func (g *game) drawPiano(screen *ebiten.Image, rect image.Rectangle, voices [polypot.Voices]polypot.VoiceInfo) {
	g.drawPanel(screen, rect)
	low, ok := g.layout.NoteFor('z')
	if !ok {
		return
	}
	lit := map[int]color.Color{}
	for _, v := range voices {
		switch v.State {
		case synth.Sounding:
			lit[int(v.Note)] = voiceSoundingColor
		case synth.Releasing:
			if _, on := lit[int(v.Note)]; !on {
				lit[int(v.Note)] = voiceReleasingColor
			}
		}
	}

	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	whites := 0
	for n := int(low); n < int(low)+pianoKeys; n++ {
		if !isBlack(n) {
			whites++
		}
	}
	keyW := float64(inner.Dx()) / float64(whites)
	keyH := float64(inner.Dy())
	x := float64(inner.Min.X)
	type blackKey struct {
		x float64
		n int
	}
	var blacks []blackKey
	for n := int(low); n < int(low)+pianoKeys; n++ {
		if isBlack(n) {
			blacks = append(blacks, blackKey{x: x - keyW*0.3, n: n})
			continue
		}
		var c color.Color = whiteKeyColor
		if lc, on := lit[n]; on {
			c = lc
		}
		ebitenutil.DrawRect(screen, x+1, float64(inner.Min.Y), keyW-2, keyH, c)
		if n%12 == 0 {
			g.drawText(screen, noteName(uint8(n)), int(x)+4, inner.Max.Y-lineH-2)
		}
		x += keyW
	}
	for _, b := range blacks {
		var c color.Color = blackKeyColor
		if lc, on := lit[b.n]; on {
			c = lc
		}
		ebitenutil.DrawRect(screen, b.x, float64(inner.Min.Y), keyW*0.6, keyH*0.6, c)
	}
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

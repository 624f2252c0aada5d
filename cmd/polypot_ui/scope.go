package main

import (
	"image"
	"image/color"
	"math"
	"math/cmplx"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const (
	fftSize    = 2048
	ringBufLen = 16384
)

// scopeTap keeps the most recent rendered output as mono samples.
type scopeTap struct {
	mu       sync.Mutex
	ring     []float32
	writePos int
}

func newScopeTap() *scopeTap {
	return &scopeTap{ring: make([]float32, ringBufLen)}
}

// Tap runs on the audio goroutine.
func (s *scopeTap) Tap(samples []float32) {
	s.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		s.ring[s.writePos] = (samples[i] + samples[i+1]) * 0.5
		s.writePos = (s.writePos + 1) % ringBufLen
	}
	s.mu.Unlock()
}

// Latest copies the newest n samples, oldest first, into dst.
func (s *scopeTap) Latest(dst []float32) {
	n := min(len(dst), ringBufLen)
	s.mu.Lock()
	start := (s.writePos - n + ringBufLen) % ringBufLen
	for i := 0; i < n; i++ {
		dst[i] = s.ring[(start+i)%ringBufLen]
	}
	s.mu.Unlock()
}

// fft computes a radix-2 FFT in-place.
func fft(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}
	bits := 0
	for m := n; m > 1; m >>= 1 {
		bits++
	}
	for i := 0; i < n; i++ {
		j := 0
		for b := 0; b < bits; b++ {
			if i&(1<<b) != 0 {
				j |= 1 << (bits - 1 - b)
			}
		}
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}
	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		wn := -2.0 * math.Pi / float64(size)
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				t := cmplx.Rect(1, wn*float64(k)) * x[start+k+half]
				x[start+k+half] = x[start+k] - t
				x[start+k] = x[start+k] + t
			}
		}
	}
}

func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	width, height := inner.Dx(), inner.Dy()
	if width <= 0 || height <= 0 {
		return
	}
	if g.scopeImg == nil || g.scopeImg.Bounds().Dx() != width || g.scopeImg.Bounds().Dy() != height {
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})

	g.tap.Latest(g.snap[:])
	waveH := int(float64(height) * 0.45)
	g.drawWaveform(g.scopeImg, g.snap[:], width, waveH)
	ebitenutil.DrawRect(g.scopeImg, 0, float64(waveH), float64(width), 1, color.RGBA{50, 54, 68, 180})
	g.drawSpectrumBars(g.scopeImg, g.snap[:], width, height-waveH-1, waveH+1)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

func (g *game) drawWaveform(dst *ebiten.Image, samples []float32, width int, height int) {
	if len(samples) < 2 || width < 2 || height < 4 {
		return
	}
	midY := height / 2
	ebitenutil.DrawRect(dst, 0, float64(midY), float64(width), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain with fast attack and slow release.
	var peak float32
	for _, s := range samples {
		peak = max(peak, float32(math.Abs(float64(s))))
	}
	target := max(float64(peak), 0.01)
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	g.wavePeak = max(g.wavePeak, 0.01)
	gain := float64(midY-2) / g.wavePeak

	trigger := findZeroCrossing(samples, len(samples)/4)
	visible := max(len(samples)-trigger, 2)
	waveColor := color.RGBA{80, 200, 255, 220}
	prevY := midY - int(float64(samples[trigger])*gain)
	for px := 1; px < width; px++ {
		si := min(trigger+px*visible/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(dst, float64(px-1), float64(prevY), float64(px), float64(y), waveColor)
		prevY = y
	}
}

// findZeroCrossing finds a rising zero-crossing to hold the waveform still.
func findZeroCrossing(samples []float32, searchLen int) int {
	searchLen = min(searchLen, len(samples)-2)
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

func (g *game) drawSpectrumBars(dst *ebiten.Image, samples []float32, width int, height int, yOffset int) {
	if len(samples) < fftSize || width < 4 || height < 4 {
		return
	}
	buf := g.fftBuf[:]
	for i := range buf {
		w := 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(fftSize-1)))
		buf[i] = complex(float64(samples[len(samples)-fftSize+i])*w, 0)
	}
	fft(buf)

	numBars := min(max(width/3, 16), 256)
	if len(g.specBins) != numBars {
		g.specBins = make([]float64, numBars)
	}
	halfFFT := fftSize / 2
	maxBin := min(halfFFT*18000/(g.sampleRate/2), halfFFT)
	logMax := math.Log(float64(maxBin))
	for i := 0; i < numBars; i++ {
		binStart := int(math.Exp(float64(i) / float64(numBars) * logMax))
		binEnd := min(max(int(math.Exp(float64(i+1)/float64(numBars)*logMax)), binStart+1), halfFFT)
		sum := 0.0
		for b := binStart; b < binEnd; b++ {
			sum += cmplx.Abs(buf[b])
		}
		db := 20.0 * math.Log10(sum/float64(binEnd-binStart)/float64(fftSize)+1e-10)
		norm := clamp((db+80.0)/80.0, 0, 1)
		if prev := g.specBins[i]; norm > prev {
			g.specBins[i] = prev*0.3 + norm*0.7
		} else {
			g.specBins[i] = prev*0.85 + norm*0.15
		}
	}

	barW := float64(width) / float64(numBars)
	for i, v := range g.specBins {
		barH := max(v*float64(height-4), 1)
		r, gr, b := spectrumColor(v)
		ebitenutil.DrawRect(dst, float64(i)*barW+1, float64(yOffset)+float64(height-2)-barH, barW-1, barH, color.RGBA{r, gr, b, 220})
	}
}

func spectrumColor(v float64) (uint8, uint8, uint8) {
	if v < 0.33 {
		t := v / 0.33
		return uint8(30 + 20*t), uint8(80 + 120*t), uint8(200 + 55*t)
	}
	if v < 0.66 {
		t := (v - 0.33) / 0.33
		return uint8(50 + 140*t), uint8(200 + 30*t), uint8(255 - 100*t)
	}
	t := (v - 0.66) / 0.34
	return uint8(190 + 65*t), uint8(230 - 100*t), uint8(155 - 100*t)
}

package captcha

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"
)

// renderImage draws the answer over a noisy retro backdrop and returns it as
// an SVG data URI. Purely cosmetic: nothing about verification depends on
// the image, so the noise can use a non-crypto source.
func renderImage(text string, variant Variant) string {
	palette := paletteFor(variant)

	var noise strings.Builder
	for i := 0; i < 14; i++ {
		x1 := rand.Intn(320)
		x2 := rand.Intn(320)
		y := 18 + i*12
		opacity := 0.2 + rand.Float64()*0.35
		fmt.Fprintf(&noise,
			`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1.5" opacity="%.2f" />`,
			x1, y, x2, y, palette[i%len(palette)], opacity)
	}

	var scatter strings.Builder
	for i := 0; i < 32; i++ {
		cx := rand.Intn(320)
		cy := rand.Intn(120)
		r := 1 + rand.Float64()*2
		opacity := 0.3 + rand.Float64()*0.4
		fmt.Fprintf(&scatter,
			`<circle cx="%d" cy="%d" r="%.1f" fill="%s" opacity="%.2f" />`,
			cx, cy, r, palette[rand.Intn(len(palette))], opacity)
	}

	spaced := strings.Join(strings.Split(text, ""), " ")

	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="340" height="160" viewBox="0 0 340 160">
  <defs>
    <linearGradient id="bg" x1="0%%" y1="0%%" x2="100%%" y2="0%%">
      <stop offset="0%%" stop-color="%s" />
      <stop offset="100%%" stop-color="%s" />
    </linearGradient>
    <filter id="noise">
      <feTurbulence type="fractalNoise" baseFrequency="0.8" numOctaves="2" stitchTiles="stitch" />
      <feColorMatrix type="saturate" values="0.4" />
    </filter>
  </defs>
  <rect width="340" height="160" rx="18" fill="url(#bg)" />
  <g filter="url(#noise)" opacity="0.18">
    <rect width="340" height="160" fill="url(#bg)" />
  </g>
  %s
  %s
  <text x="50%%" y="58%%" text-anchor="middle" fill="%s" font-family="'Space Mono', 'IBM Plex Mono', monospace" font-weight="700" font-size="44" letter-spacing="6">%s</text>
  <text x="50%%" y="74%%" text-anchor="middle" fill="%s" font-family="'Space Grotesk', 'Inter', sans-serif" font-size="12" opacity="0.9" letter-spacing="1.8">RETRO HUMANITY CHECK</text>
</svg>`,
		palette[3], palette[2], scatter.String(), noise.String(), palette[0], spaced, palette[1])

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func paletteFor(variant Variant) [4]string {
	switch variant {
	case VariantWarp:
		return [4]string{"#FF7F11", "#FFD166", "#8A80F6", "#1B1B3A"}
	case VariantSignalNoise:
		return [4]string{"#44FFD2", "#00BBF9", "#FFD166", "#1F2233"}
	case VariantMatrix:
		return [4]string{"#00FF41", "#00E63A", "#00BB32", "#081B0D"}
	default:
		return [4]string{"#8EF9F3", "#F72585", "#4CC9F0", "#1A102A"}
	}
}

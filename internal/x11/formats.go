package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/render"
)

// standardFormat describes one of the XRender standard picture formats.
type standardFormat struct {
	name   string
	depth  byte
	direct render.Directformat
}

var (
	formatARGB32 = standardFormat{
		name:  "ARGB32",
		depth: 32,
		direct: render.Directformat{
			RedShift: 16, RedMask: 0xff,
			GreenShift: 8, GreenMask: 0xff,
			BlueShift: 0, BlueMask: 0xff,
			AlphaShift: 24, AlphaMask: 0xff,
		},
	}
	formatRGB24 = standardFormat{
		name:  "RGB24",
		depth: 24,
		direct: render.Directformat{
			RedShift: 16, RedMask: 0xff,
			GreenShift: 8, GreenMask: 0xff,
			BlueShift: 0, BlueMask: 0xff,
		},
	}
	formatA1 = standardFormat{
		name:  "A1",
		depth: 1,
		direct: render.Directformat{
			AlphaShift: 0, AlphaMask: 0x1,
		},
	}
)

// Formats holds the picture formats used for captured windows and masks.
type Formats struct {
	ARGB32 render.Pictformat
	RGB24  render.Pictformat
	A1     render.Pictformat
}

// ForDepth picks the format for a window of the given depth. Only 24- and
// 32-bit windows can be captured.
func (f Formats) ForDepth(depth byte) (render.Pictformat, bool) {
	switch depth {
	case 32:
		return f.ARGB32, true
	case 24:
		return f.RGB24, true
	default:
		return 0, false
	}
}

// CompositeOp is Over for windows with an alpha channel and Src otherwise.
func CompositeOp(depth byte) byte {
	if depth == 32 {
		return render.PictOpOver
	}
	return render.PictOpSrc
}

func (c *Connection) QueryFormats() (Formats, error) {
	reply, err := render.QueryPictFormats(c.Conn()).Reply()
	if err != nil {
		return Formats{}, fmt.Errorf("failed to query picture formats: %w", err)
	}
	return matchFormats(reply.Formats)
}

func matchFormats(infos []render.Pictforminfo) (Formats, error) {
	var out Formats
	for _, want := range []struct {
		std *standardFormat
		dst *render.Pictformat
	}{
		{&formatARGB32, &out.ARGB32},
		{&formatRGB24, &out.RGB24},
		{&formatA1, &out.A1},
	} {
		id, ok := findFormat(infos, *want.std)
		if !ok {
			return Formats{}, fmt.Errorf("finding XRender format failed for %s", want.std.name)
		}
		*want.dst = id
	}
	return out, nil
}

func findFormat(infos []render.Pictforminfo, want standardFormat) (render.Pictformat, bool) {
	for _, info := range infos {
		if info.Type != render.PictTypeDirect || info.Depth != want.depth {
			continue
		}
		if info.Direct == want.direct {
			return info.Id, true
		}
	}
	return 0, false
}

package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// DecoupleTheme is the desktop window theme.
type DecoupleTheme struct{}

var _ fyne.Theme = (*DecoupleTheme)(nil)

func (t *DecoupleTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x00, G: 0x78, B: 0xD7, A: 0xFF} // Start button blue
	case theme.ColorNameError:
		return color.NRGBA{R: 0xD8, G: 0x3B, B: 0x01, A: 0xFF} // Stop button red
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *DecoupleTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *DecoupleTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *DecoupleTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 14
	default:
		return theme.DefaultTheme().Size(name)
	}
}

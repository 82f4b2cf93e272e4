package world

import (
	"image"
	"image/color"
)

const textureSize = 16

// builtinTextures returns the textures every World starts with.
func builtinTextures() map[string]image.Image {
	return map[string]image.Image{
		"white":  solid(color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
		"tile1":  checker(color.NRGBA{R: 200, G: 200, B: 200, A: 255}, color.NRGBA{R: 120, G: 120, B: 120, A: 255}),
		"tile2":  checker(color.NRGBA{R: 230, G: 220, B: 190, A: 255}, color.NRGBA{R: 170, G: 150, B: 110, A: 255}),
		"tile3":  checker(color.NRGBA{R: 180, G: 200, B: 230, A: 255}, color.NRGBA{R: 90, G: 110, B: 160, A: 255}),
		"metal":  solid(color.NRGBA{R: 150, G: 155, B: 160, A: 255}),
		"ground": checker(color.NRGBA{R: 110, G: 100, B: 90, A: 255}, color.NRGBA{R: 80, G: 70, B: 60, A: 255}),
	}
}

func solid(c color.NRGBA) image.Image {
	return checker(c, c)
}

func checker(a, b color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, textureSize, textureSize))
	for y := 0; y < textureSize; y++ {
		for x := 0; x < textureSize; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetNRGBA(x, y, a)
			} else {
				img.SetNRGBA(x, y, b)
			}
		}
	}
	return img
}

package parallel

import "image"

// TileSize is the default tile edge in pixels.
const TileSize = 64

// SplitTiles divides r into size x size tiles in row-major order. Tiles on
// the right and bottom edges are clipped to r. A size <= 0 selects
// TileSize.
func SplitTiles(r image.Rectangle, size int) []image.Rectangle {
	if r.Empty() {
		return nil
	}
	if size <= 0 {
		size = TileSize
	}

	tilesX := (r.Dx() + size - 1) / size
	tilesY := (r.Dy() + size - 1) / size
	out := make([]image.Rectangle, 0, tilesX*tilesY)

	for ty := range tilesY {
		for tx := range tilesX {
			origin := r.Min.Add(image.Pt(tx*size, ty*size))
			out = append(out, image.Rectangle{Min: origin, Max: origin.Add(image.Pt(size, size))}.Intersect(r))
		}
	}
	return out
}

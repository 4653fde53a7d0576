package volume

// Accessor is the host-side view of a volume: whatever owns the image data
// only has to expose per-voxel reads and writes plus its dimensions.
type Accessor interface {
	Get(x, y, z int) float64
	Set(x, y, z int, v float64)
	Dims() (width, height, depth int)
}

var _ Accessor = (*Grid)(nil)

// FromAccessor copies a host volume into a freshly allocated Grid.
func FromAccessor(a Accessor) (*Grid, error) {
	g, err := NewGrid(a.Dims())
	if err != nil {
		return nil, err
	}
	i := 0
	for z := 0; z < g.Depth; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				g.Data[i] = a.Get(x, y, z)
				i++
			}
		}
	}
	return g, nil
}

// WriteTo copies g into a host volume of identical dimensions.
func WriteTo(a Accessor, g *Grid) error {
	w, h, d := a.Dims()
	if err := CheckSameShape(Shape{Width: w, Height: h, Depth: d}, g.Shape); err != nil {
		return err
	}
	i := 0
	for z := 0; z < g.Depth; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				a.Set(x, y, z, g.Data[i])
				i++
			}
		}
	}
	return nil
}

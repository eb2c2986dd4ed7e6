// Package presenter is the ebiten.Game adapter that runs the console on
// screen: it reads host keyboard state into a joypad bitmap every Update
// and blits the console's frame every Draw (SPEC_FULL.md §2). Apart from
// cmd/nesemu it is the only package that imports ebiten; nothing under
// internal/bus, internal/ppu, etc. knows this package exists.
package presenter

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"

	"nesemu/internal/bus"
	"nesemu/internal/input"
)

// KeyMap binds host keys to NES joypad buttons for one controller port.
type KeyMap struct {
	Up, Down, Left, Right ebiten.Key
	A, B, Start, Select   ebiten.Key
}

// DefaultKeyMap is the teacher's WASD + J/K layout for player one.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: ebiten.KeyW, Down: ebiten.KeyS, Left: ebiten.KeyA, Right: ebiten.KeyD,
		A: ebiten.KeyJ, B: ebiten.KeyK, Start: ebiten.KeyEnter, Select: ebiten.KeySpace,
	}
}

// Game wraps a console and drives it from ebiten's run loop.
type Game struct {
	Console *bus.Bus
	Keys    KeyMap
	Scale   int

	joypad *input.Joypad
	image  *ebiten.Image
}

// New wires a Game around an already-loaded console, attaching a fresh
// joypad at port 0.
func New(console *bus.Bus, scale int) *Game {
	if scale <= 0 {
		scale = 2
	}
	joypad := input.NewJoypad()
	console.AttachInput(0, joypad)

	return &Game{
		Console: console,
		Keys:    DefaultKeyMap(),
		Scale:   scale,
		joypad:  joypad,
		image:   ebiten.NewImage(256, 240),
	}
}

// Update reads host input and advances the console by exactly one frame.
func (g *Game) Update() error {
	var bitmap uint8
	if ebiten.IsKeyPressed(g.Keys.Up) {
		bitmap |= uint8(input.ButtonUp)
	}
	if ebiten.IsKeyPressed(g.Keys.Down) {
		bitmap |= uint8(input.ButtonDown)
	}
	if ebiten.IsKeyPressed(g.Keys.Left) {
		bitmap |= uint8(input.ButtonLeft)
	}
	if ebiten.IsKeyPressed(g.Keys.Right) {
		bitmap |= uint8(input.ButtonRight)
	}
	if ebiten.IsKeyPressed(g.Keys.A) {
		bitmap |= uint8(input.ButtonA)
	}
	if ebiten.IsKeyPressed(g.Keys.B) {
		bitmap |= uint8(input.ButtonB)
	}
	if ebiten.IsKeyPressed(g.Keys.Start) {
		bitmap |= uint8(input.ButtonStart)
	}
	if ebiten.IsKeyPressed(g.Keys.Select) {
		bitmap |= uint8(input.ButtonSelect)
	}
	g.joypad.SetButtons(bitmap)

	g.Console.RenderFullFrame()
	return nil
}

// Draw blits the console's current frame, scaled and centered.
func (g *Game) Draw(screen *ebiten.Image) {
	pix := g.Console.FrameRGBA8888()
	g.image.WritePixels(pix)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.Scale), float64(g.Scale))
	screen.Fill(color.Black)
	screen.DrawImage(g.image, op)
}

// Layout fixes the logical screen to the NES resolution scaled by Scale;
// ebiten handles any further window-to-screen scaling itself.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 256 * g.Scale, 240 * g.Scale
}

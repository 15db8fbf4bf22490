// Package ebitenpresenter implements presenter.Presenter on top of
// github.com/hajimehoshi/ebiten/v2: one *ebiten.Image per tile sprite,
// world-to-screen placement driven by an orthographic camera, and
// dispatched UI closures flushed once per ebiten Update tick — ebiten's
// game loop is the single UI thread the core protocol requires.
package ebitenpresenter

import (
	"image"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/fractaltile/asynctiled/internal/buildinfo"
	"github.com/fractaltile/asynctiled/presenter"
)

// grid is one presenter.GridHandle: a named, orderable collection of
// sprites.
type grid struct {
	zOrder  int
	visible bool
	sprites []*sprite
}

// sprite is one presenter.SpriteHandle.
type sprite struct {
	img            *ebiten.Image
	worldX, worldY float64
	worldW, worldH float64
	visible        bool
}

// Presenter adapts ebiten to the presenter.Presenter interface. Zero value
// is not usable; construct with New.
type Presenter struct {
	camCenterX, camCenterY float64
	camWidth, camHeight    float64
	visibleW, visibleH     float64
	scale                  float64

	mu    sync.Mutex
	grids []*grid

	dispatchMu sync.Mutex
	pending    []func()
}

// New constructs an ebiten-backed Presenter. Call Run to open the window
// and start the game loop; the coordinator should be wired up via the
// closure passed to Run before the first frame.
func New(scale float64) *Presenter {
	if scale <= 0 {
		scale = 1
	}
	return &Presenter{scale: scale}
}

// Run opens a desktop window and starts the ebiten game loop, calling
// onUpdate once per tick after any dispatched closures have run. It blocks
// until the window closes.
func (p *Presenter) Run(title string, windowW, windowH int, onUpdate func() error) error {
	build := buildinfo.Short()
	slog.With("component", "ebitenpresenter").Info("opening window", "title", title, "build", build)
	ebiten.SetWindowTitle(title + " (" + build + ")")
	ebiten.SetWindowSize(windowW, windowH)
	p.visibleW, p.visibleH = float64(windowW), float64(windowH)
	return ebiten.RunGame(&game{p: p, onUpdate: onUpdate})
}

type game struct {
	p        *Presenter
	onUpdate func() error
}

func (g *game) Update() error {
	g.p.flushDispatch()
	if g.onUpdate != nil {
		return g.onUpdate()
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.p.draw(screen)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func (p *Presenter) flushDispatch() {
	p.dispatchMu.Lock()
	fns := p.pending
	p.pending = nil
	p.dispatchMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (p *Presenter) draw(screen *ebiten.Image) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ordered := make([]*grid, len(p.grids))
	copy(ordered, p.grids)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].zOrder > ordered[j].zOrder; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}

	sx := p.visibleW / p.camWidth
	sy := p.visibleH / p.camHeight
	for _, g := range ordered {
		if !g.visible {
			continue
		}
		for _, s := range g.sprites {
			if !s.visible || s.img == nil {
				continue
			}
			screenX := (s.worldX - (p.camCenterX - p.camWidth/2)) * sx
			screenY := (p.camHeight/2 - (s.worldY + s.worldH - p.camCenterY)) * sy
			opts := &ebiten.DrawImageOptions{}
			opts.GeoM.Scale(s.worldW*sx/float64(s.img.Bounds().Dx()), s.worldH*sy/float64(s.img.Bounds().Dy()))
			opts.GeoM.Translate(screenX, screenY)
			screen.DrawImage(s.img, opts)
		}
	}
}

// --- presenter.Presenter ---

func (p *Presenter) VisibleSize() (w, h float64) { return p.visibleW, p.visibleH }

func (p *Presenter) ContentScale() float64 { return p.scale }

func (p *Presenter) UIDispatch(fn func()) {
	p.dispatchMu.Lock()
	p.pending = append(p.pending, fn)
	p.dispatchMu.Unlock()
}

func (p *Presenter) CreateGrid() presenter.GridHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := &grid{}
	p.grids = append(p.grids, g)
	return g
}

func (p *Presenter) CreateTileSprite(gridHandle presenter.GridHandle, initialPixels []byte, w, h int) presenter.SpriteHandle {
	g := gridHandle.(*grid)
	img := ebiten.NewImage(w, h)
	img.WritePixels(initialPixels)
	s := &sprite{img: img}

	p.mu.Lock()
	g.sprites = append(g.sprites, s)
	p.mu.Unlock()
	return s
}

func (p *Presenter) PositionSprite(spriteHandle presenter.SpriteHandle, worldX, worldY, worldW, worldH float64, visible bool) {
	s := spriteHandle.(*sprite)
	p.mu.Lock()
	s.worldX, s.worldY, s.worldW, s.worldH, s.visible = worldX, worldY, worldW, worldH, visible
	p.mu.Unlock()
}

func (p *Presenter) UploadTileTexture(spriteHandle presenter.SpriteHandle, pixels []byte, w, h int) {
	s := spriteHandle.(*sprite)
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.img.Bounds() != image.Rect(0, 0, w, h) {
		s.img.Deallocate()
		s.img = ebiten.NewImage(w, h)
	}
	s.img.WritePixels(pixels)
}

func (p *Presenter) SetGridVisible(gridHandle presenter.GridHandle, visible bool) {
	g := gridHandle.(*grid)
	p.mu.Lock()
	g.visible = visible
	p.mu.Unlock()
}

func (p *Presenter) SetGridZOrder(gridHandle presenter.GridHandle, z int) {
	g := gridHandle.(*grid)
	p.mu.Lock()
	g.zOrder = z
	p.mu.Unlock()
}

func (p *Presenter) SetOrthographic(width, height, _, _ float64) {
	p.mu.Lock()
	p.camWidth, p.camHeight = width, height
	p.mu.Unlock()
}

func (p *Presenter) SetCameraPosition(worldX, worldY float64) {
	p.mu.Lock()
	p.camCenterX, p.camCenterY = worldX, worldY
	p.mu.Unlock()
}

package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/sqweek/dialog"
	"golang.org/x/image/font/basicfont"

	"gochip8/pkg/chip8"
)

const (
	pixelScale = 10
	panelWidth = 240

	screenWidth  = chip8.DisplayWidth*pixelScale + panelWidth
	screenHeight = chip8.DisplayHeight * pixelScale
)

// scheme is a predefined foreground/background pair for the display.
type scheme struct {
	name   string
	fg, bg color.RGBA
}

var schemes = []scheme{
	{"classic", color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}, color.RGBA{0x00, 0x00, 0x00, 0xFF}},
	{"phosphor", color.RGBA{0x33, 0xFF, 0x66, 0xFF}, color.RGBA{0x05, 0x20, 0x0D, 0xFF}},
	{"ice", color.RGBA{0xAD, 0xD8, 0xFF, 0xFF}, color.RGBA{0x0A, 0x14, 0x2E, 0xFF}},
}

// keyLayouts maps host keyboard keys to the 16 pad keys. "grid" is the
// conventional 4×4 block on the left of a QWERTY keyboard; "hex" uses the
// literal digit and letter keys.
var keyLayouts = map[string]map[ebiten.Key]byte{
	"grid": {
		ebiten.Key1: 0x1, ebiten.Key2: 0x2, ebiten.Key3: 0x3, ebiten.Key4: 0xC,
		ebiten.KeyQ: 0x4, ebiten.KeyW: 0x5, ebiten.KeyE: 0x6, ebiten.KeyR: 0xD,
		ebiten.KeyA: 0x7, ebiten.KeyS: 0x8, ebiten.KeyD: 0x9, ebiten.KeyF: 0xE,
		ebiten.KeyZ: 0xA, ebiten.KeyX: 0x0, ebiten.KeyC: 0xB, ebiten.KeyV: 0xF,
	},
	"hex": {
		ebiten.Key0: 0x0, ebiten.Key1: 0x1, ebiten.Key2: 0x2, ebiten.Key3: 0x3,
		ebiten.Key4: 0x4, ebiten.Key5: 0x5, ebiten.Key6: 0x6, ebiten.Key7: 0x7,
		ebiten.Key8: 0x8, ebiten.Key9: 0x9, ebiten.KeyA: 0xA, ebiten.KeyB: 0xB,
		ebiten.KeyC: 0xC, ebiten.KeyD: 0xD, ebiten.KeyE: 0xE, ebiten.KeyF: 0xF,
	},
}

type Game struct {
	vm    *chip8.Machine
	sched *chip8.Scheduler

	screen    *ebiten.Image // reused 64×32 framebuffer image
	layout    map[ebiten.Key]byte
	schemeIdx int
}

func (g *Game) Update() error {
	for host, key := range g.layout {
		g.vm.Keys.SetKey(key, ebiten.IsKeyPressed(host))
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		if g.sched.State() == chip8.Running {
			g.sched.Pause()
		} else {
			g.sched.Start()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) && g.sched.State() == chip8.Stopped {
		// Single step; a fault shows up in the panel.
		_ = g.sched.Step()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		g.schemeIdx = (g.schemeIdx + 1) % len(schemes)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		g.screenshot()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.sched.Reset()
		g.sched.Start()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageUp) {
		g.sched.SetSpeed(g.sched.Speed() * 2)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageDown) {
		g.sched.SetSpeed(g.sched.Speed() / 2)
	}

	if g.sched.State() == chip8.Running {
		// A fault halts the scheduler; keep the window open so the panel
		// can show where it happened.
		_ = g.sched.Tick(time.Now())
	}

	return nil
}

func (g *Game) screenshot() {
	sc := schemes[g.schemeIdx]
	name := fmt.Sprintf("chip8-%s.png", time.Now().Format("20060102-150405"))
	if err := g.vm.Display.SaveScreenshot(name, sc.fg, sc.bg); err != nil {
		log.Printf("screenshot failed: %v", err)
		return
	}
	log.Printf("saved %s", name)
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screen == nil {
		g.screen = ebiten.NewImage(chip8.DisplayWidth, chip8.DisplayHeight)
	}

	sc := schemes[g.schemeIdx]
	g.screen.WritePixels(g.vm.Display.RGBA(sc.fg, sc.bg))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(pixelScale, pixelScale)
	screen.DrawImage(g.screen, op)

	g.drawPanel(screen)
}

// drawPanel renders the inspection panel: scheduler state, registers,
// timers, stack, the last executed instruction and the disassembly around
// the program counter.
func (g *Game) drawPanel(screen *ebiten.Image) {
	snap := g.vm.Snapshot()
	face := basicfont.Face7x13
	bright := color.RGBA{0xE0, 0xE0, 0xE0, 0xFF}
	dim := color.RGBA{0x80, 0x80, 0x80, 0xFF}

	x := chip8.DisplayWidth*pixelScale + 10
	y := 16
	line := func(c color.Color, format string, args ...any) {
		text.Draw(screen, fmt.Sprintf(format, args...), face, x, y, c)
		y += 13
	}

	state := g.sched.State()
	line(bright, "%s  %d ips", state, g.sched.Speed())
	if state == chip8.Halted {
		line(bright, "fault at %03X: %v", g.sched.FaultPC(), g.sched.Err())
	}
	if g.vm.SoundActive() {
		line(bright, "beep")
	}
	y += 6

	for i := 0; i < 8; i++ {
		line(bright, "V%X %02X    V%X %02X", i, snap.V[i], i+8, snap.V[i+8])
	}
	line(bright, "PC %03X  I %03X  SP %X", snap.PC, snap.I, snap.SP)
	line(bright, "DT %02X   ST %02X", snap.DelayTimer, snap.SoundTimer)
	if len(snap.Stack) > 0 {
		line(dim, "stack %03X", snap.Stack)
	}
	y += 6

	start := int(snap.PC) - 6
	if start < 0 {
		start = 0
	}
	for addr := start; addr < start+16; addr += 2 {
		d := g.vm.Disassemble(uint16(addr))
		if d == "" {
			continue
		}
		marker := " "
		if uint16(addr) == snap.PC {
			marker = ">"
		}
		line(dim, "%s %s", marker, d)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	romPath := flag.String("rom", "", "path to a CHIP-8 ROM (file dialog if empty)")
	speed := flag.Int("speed", chip8.DefaultSpeed, "instructions per second")
	schemeName := flag.String("scheme", "classic", "color scheme: classic, phosphor or ice")
	layoutName := flag.String("keys", "grid", "key layout: grid or hex")
	flag.Parse()

	if *romPath == "" && flag.NArg() > 0 {
		*romPath = flag.Arg(0)
	}
	if *romPath == "" {
		path, err := dialog.File().Filter("CHIP-8 ROMs", "ch8", "c8", "rom").Title("Open ROM").Load()
		if err != nil {
			log.Fatalf("No ROM selected: %v", err)
		}
		*romPath = path
	}

	schemeIdx := -1
	for i, sc := range schemes {
		if sc.name == *schemeName {
			schemeIdx = i
		}
	}
	if schemeIdx < 0 {
		log.Fatalf("Unknown color scheme %q", *schemeName)
	}

	layout, ok := keyLayouts[*layoutName]
	if !ok {
		log.Fatalf("Unknown key layout %q", *layoutName)
	}

	program, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("Failed to read ROM: %v", err)
	}

	vm := chip8.New()
	if err := vm.LoadROM(program); err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	sched := chip8.NewScheduler(vm)
	sched.SetSpeed(*speed)
	sched.Start()

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle(fmt.Sprintf("CHIP-8 - %s", filepath.Base(*romPath)))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	game := &Game{vm: vm, sched: sched, layout: layout, schemeIdx: schemeIdx}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}

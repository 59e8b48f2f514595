// Command orifice finds the through holes of a thin surface given as a
// binary STL file and the closed curve along its outer rim.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/soypat/orifice"
	"github.com/soypat/orifice/mesh"
	"github.com/soypat/orifice/render"
	"github.com/unixpickle/essentials"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

func main() {
	var (
		surfacePath string
		curvePath   string
		paramsPath  string
		outDir      string
		preview     bool
		quiet       bool
	)
	flag.StringVar(&surfacePath, "surface", "", "binary STL file of the medial surface")
	flag.StringVar(&curvePath, "curve", "", "CSV file of x,y,z rows along the outer rim")
	flag.StringVar(&paramsPath, "params", "", "optional YAML file overriding default parameters")
	flag.StringVar(&outDir, "out", ".", "output directory")
	flag.BoolVar(&preview, "preview", false, "also render preview.png")
	flag.BoolVar(&quiet, "quiet", false, "do not log progress")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage:", os.Args[0], "-surface in.stl -curve rim.csv [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	flag.Parse()
	if surfacePath == "" || curvePath == "" {
		flag.Usage()
	}

	cfg := orifice.DefaultConfig()
	if paramsPath != "" {
		var err error
		cfg, err = readConfig(paramsPath, cfg)
		essentials.Must(err)
	}
	if !quiet {
		cfg.Logger = log.Default()
	}

	log.Println("Loading", surfacePath, "...")
	s, err := render.LoadSurface(surfacePath)
	essentials.Must(err)
	fp, err := os.Open(curvePath)
	essentials.Must(err)
	curve, err := ReadCurve(fp)
	fp.Close()
	essentials.Must(err)

	result, err := orifice.ProcessSurface(s, curve, cfg)
	essentials.Must(err)
	log.Printf("found %d orifices, total area %.3f", len(result.Regions), result.TotalArea)
	for _, r := range result.Regions {
		log.Printf("%s: area %.3f at %.3f,%.3f,%.3f", r.Label, r.Area, r.Position.X, r.Position.Y, r.Position.Z)
	}

	essentials.Must(os.MkdirAll(outDir, 0755))
	essentials.Must(writeOutputs(outDir, result, preview))
}

func readConfig(path string, defaults orifice.Config) (orifice.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return defaults, err
	}
	cfg := defaults
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return defaults, errors.Wrap(err, path)
	}
	return cfg, nil
}

// writeOutputs writes every output file concurrently. Empty surfaces are
// not written.
func writeOutputs(dir string, result *orifice.Result, preview bool) error {
	var g errgroup.Group
	saveSurface := func(name string, s *mesh.Surface) {
		if s == nil || s.Empty() {
			return
		}
		g.Go(func() error {
			return render.SaveSurface(filepath.Join(dir, name), s)
		})
	}
	saveSurface("thick.stl", result.ThickSurface)
	saveSurface("shrunk.stl", result.Shrunk)
	saveSurface("orifice.stl", result.OrificeSurface)
	g.Go(func() error {
		fp, err := os.Create(filepath.Join(dir, "regions.csv"))
		if err != nil {
			return err
		}
		defer fp.Close()
		if err := WriteRegions(fp, result.Regions); err != nil {
			return err
		}
		return fp.Close()
	})
	if preview {
		g.Go(func() error {
			layers := []render.Layer{{Surface: result.ThickSurface, Color: "#D0D0D0"}}
			for _, r := range result.Regions {
				layers = append(layers, render.Layer{Surface: r.Surface, Color: "#B64926"})
			}
			return render.SavePreview(filepath.Join(dir, "preview.png"), layers)
		})
	}
	return g.Wait()
}

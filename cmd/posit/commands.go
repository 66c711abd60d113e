// Copyright 2020 Aleksandr Demakin. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/errs"

	"github.com/avdva/posit"
	"github.com/avdva/posit/datafile"
	"github.com/avdva/posit/expr"
	"github.com/avdva/posit/quire"
)

// maxTableBits limits the table command to 4096 rows.
const maxTableBits = 12

// InfoCmd prints the limits of a configuration.
type InfoCmd struct {
	Capacity uint `help:"Quire headroom bits, 0 for the default." default:"0"`
}

func (c *InfoCmd) Run(g *Globals) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	q := quire.New(cfg, c.Capacity)
	lo, hi := q.Window()
	g.printf("%-15s %s %s\n", "configuration", cfg, cfg.Mode)
	g.printf("%-15s 2^%d\n", "useed", 1<<cfg.ES)
	g.printf("%-15s %d\n", "fraction bits", cfg.FractionBits())
	g.printf("%-15s [%d, %d]\n", "scale", -cfg.MaxScale(), cfg.MaxScale())
	g.printf("%-15s %v %s\n", "maxpos", cfg.MaxPos(), cfg.MaxPos().HexFormat())
	g.printf("%-15s %v %s\n", "minpos", cfg.MinPos(), cfg.MinPos().HexFormat())
	g.printf("%-15s %s\n", "nar", cfg.NaR().HexFormat())
	g.printf("%-15s %d bits, %d fraction bits, capacity %d, window [%d, %d]\n",
		"quire", q.TotalBits(), q.Radix(), q.Capacity(), lo, hi)
	return nil
}

// ConvertCmd rounds numbers to posits and shows their encodings.
type ConvertCmd struct {
	Values []string `arg:"" help:"Decimal numbers, nar, or hex formats like 16.2x5300p."`
	Exact  bool     `help:"Print the exact decimal value of each posit."`
}

func (c *ConvertCmd) Run(g *Globals) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	var group errs.Group
	for _, v := range c.Values {
		p, err := parseValue(cfg, v)
		if err != nil {
			group.Add(fmt.Errorf("%q: %w", v, err))
			continue
		}
		g.printf("%s\n", v)
		g.printf("  %-11s %v\n", "value", p)
		g.printf("  %-11s %s\n", "hex", p.HexFormat())
		g.printf("  %-11s %s\n", "binary", p.Binary(true))
		g.printf("  %-11s %s\n", "fields", p.Fields())
		g.printf("  %-11s %s\n", "triple", p.Triple())
		g.printf("  %-11s %s\n", "scientific", p.Base2Scientific())
		if c.Exact && !p.IsNaR() {
			g.printf("  %-11s %s\n", "exact", p.Decimal())
		}
		g.log.Debug("converted", "input", v, "bits", p.Bits())
	}
	return group.Err()
}

// TableCmd lists every encoding of a small configuration.
type TableCmd struct {
	Exact bool `help:"Print exact decimal values instead of the shortest float64 form."`
}

func (c *TableCmd) Run(g *Globals) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	if cfg.NBits > maxTableBits {
		return fmt.Errorf("table supports up to %d bits, got %d", maxTableBits, cfg.NBits)
	}
	for bits := uint64(0); bits < 1<<cfg.NBits; bits++ {
		p := cfg.FromBits(bits)
		value := p.String()
		if c.Exact && !p.IsNaR() {
			value = p.Decimal().String()
		}
		g.printf("%s  %s  %s\n", p.BitField().Hex(), p.Binary(false), value)
	}
	return nil
}

// EvalCmd evaluates an expression.
type EvalCmd struct {
	Expr   []string `arg:"" help:"Expression, arguments are joined with spaces."`
	Format string   `default:"value" enum:"value,hex,fields,exact" help:"Output format: value, hex, fields or exact."`
}

func (c *EvalCmd) Run(g *Globals) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	src := strings.Join(c.Expr, " ")
	res, err := expr.Eval(cfg, src)
	if err != nil {
		return err
	}
	g.log.Debug("evaluated", "expr", src, "bits", res.Bits())
	switch c.Format {
	case "hex":
		g.printf("%s\n", res.HexFormat())
	case "fields":
		g.printf("%s\n", res.Fields())
	case "exact":
		if res.IsNaR() {
			g.printf("%v\n", res)
		} else {
			g.printf("%s\n", res.Decimal())
		}
	default:
		g.printf("%v\n", res)
	}
	return nil
}

// DotCmd computes a fused dot product and compares it to the naive one.
type DotCmd struct {
	X []string `name:"x" required:"" help:"First vector, comma separated."`
	Y []string `name:"y" required:"" help:"Second vector, comma separated."`
}

func (c *DotCmd) Run(g *Globals) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	x, xErr := parseValues(cfg, c.X)
	y, yErr := parseValues(cfg, c.Y)
	if err := errs.Combine(xErr, yErr); err != nil {
		return err
	}
	fused, err := quire.Dot(cfg, x, y)
	if err != nil {
		return err
	}
	naive := cfg.Zero()
	if err := posit.Catch(func() {
		for i := range x {
			naive = naive.Add(x[i].Mul(y[i]))
		}
	}); err != nil {
		return err
	}
	g.printf("%-6s %v\n", "fused", fused)
	g.printf("%-6s %v\n", "naive", naive)
	return nil
}

// PackCmd stores numbers in a data file.
type PackCmd struct {
	Values      []string `arg:"" optional:"" help:"Numbers to store."`
	Input       string   `short:"i" type:"existingfile" help:"Read whitespace separated numbers from a file."`
	Output      string   `short:"o" required:"" type:"path" help:"Output file."`
	Compression string   `default:"zstd" enum:"none,zstd,s2,lz4,xz" help:"Payload compression."`
	Checksum    string   `default:"xxh64" enum:"none,xxh64,blake3" help:"Payload checksum."`
}

func (c *PackCmd) Run(g *Globals) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	opts, err := c.options()
	if err != nil {
		return err
	}
	values := c.Values
	if c.Input != "" {
		fromFile, err := readWords(c.Input)
		if err != nil {
			return err
		}
		values = append(values, fromFile...)
	}
	ps, err := parseValues(cfg, values)
	if err != nil {
		return err
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	if err := datafile.Write(f, cfg, ps, opts); err != nil {
		return errs.Combine(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	g.log.Info("packed", "file", c.Output, "count", len(ps), "config", cfg.String(),
		"compression", opts.Compression.String(), "checksum", opts.Checksum.String())
	return nil
}

func (c *PackCmd) options() (datafile.Options, error) {
	var opts datafile.Options
	var err, sumErr error
	opts.Compression, err = datafile.ParseCompression(c.Compression)
	opts.Checksum, sumErr = datafile.ParseChecksum(c.Checksum)
	return opts, errs.Combine(err, sumErr)
}

// UnpackCmd prints the contents of a data file.
type UnpackCmd struct {
	Path   string `arg:"" type:"existingfile" help:"Data file."`
	Hex    bool   `help:"Print hex formats instead of values."`
	Header bool   `help:"Print only the header."`
}

func (c *UnpackCmd) Run(g *Globals) error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	h, err := datafile.ReadHeader(f)
	if err != nil {
		return err
	}
	g.printf("posit<%d,%d> count=%d compression=%s checksum=%s payload=%d\n",
		h.NBits, h.ES, h.Count, h.Compression, h.Checksum, h.PayloadLen)
	if c.Header {
		return nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, ps, err := datafile.Read(bufio.NewReader(f))
	if err != nil {
		return err
	}
	for _, p := range ps {
		if c.Hex {
			g.printf("%s\n", p.HexFormat())
		} else {
			g.printf("%v\n", p)
		}
	}
	return nil
}

func parseValues(cfg posit.Config, values []string) ([]posit.Posit, error) {
	var group errs.Group
	ps := make([]posit.Posit, 0, len(values))
	for _, v := range values {
		p, err := parseValue(cfg, v)
		if err != nil {
			group.Add(fmt.Errorf("%q: %w", v, err))
			continue
		}
		ps = append(ps, p)
	}
	return ps, group.Err()
}

func parseValue(cfg posit.Config, s string) (p posit.Posit, err error) {
	if trapErr := posit.Catch(func() {
		p, err = cfg.FromString(s)
	}); trapErr != nil {
		return cfg.NaR(), trapErr
	}
	return p, err
}

func readWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var words []string
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	return words, scanner.Err()
}

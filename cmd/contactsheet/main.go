// Command contactsheet rebuilds the contact sheet for a folder of
// corrected images.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"decouple-tool/internal/logger"
	"decouple-tool/internal/mosaic"
	"decouple-tool/internal/raster/cvdecode"
)

func main() {
	dir := flag.String("dir", "", "Folder of corrected TIFF images")
	stride := flag.Int("stride", mosaic.DefaultStride, "Downsampling step")
	columns := flag.Int("columns", mosaic.DefaultColumns, "Tiles per row")
	flag.Parse()

	if *dir == "" {
		fmt.Println("Usage: contactsheet -dir <folder> [-stride 10] [-columns 6]")
		os.Exit(2)
	}

	cvdecode.Register()
	log := logger.NewConsole(logger.LevelFromEnv())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := mosaic.NewCompositor(logger.Component(log, "mosaic"))
	c.Stride = *stride
	c.Columns = *columns

	out, err := c.ComposeDir(ctx, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build contact sheet: %v\n", err)
		os.Exit(1)
	}
	if out == "" {
		fmt.Printf("Fewer than %d images in %s, nothing written\n", mosaic.MinImages, *dir)
		return
	}
	fmt.Printf("Wrote %s\n", out)
}

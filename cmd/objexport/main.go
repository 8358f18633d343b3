package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/export"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/mesh"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML-конфигу")
		outDir     = flag.String("o", ".", "каталог для .obj и .mtl")
		name       = flag.String("name", "world", "имя файлов без расширения")
		size       = flag.Int("size", 0, "размер мира в чанках (0 = из конфига)")
		seed       = flag.Int64("seed", 0, "сид генерации (0 = из конфига/окружения)")
		compress   = flag.Bool("zstd", false, "сжать OBJ в zstd")
		workers    = flag.Int("cpus", 0, "число воркеров (0 = по числу CPU)")
		verbose    = flag.Bool("v", false, "подробный лог")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Использование: %s [опции]\n\nГенерирует мир и выгружает его меши в Wavefront OBJ.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *size > 0 {
		cfg.World.Size = *size
	}
	if *seed != 0 {
		cfg.World.Generator.Seed = *seed
	}
	if *workers > 0 {
		cfg.World.Workers = *workers
		cfg.Mesh.Workers = *workers
	}

	level := logging.INFO
	if *verbose {
		level = logging.DEBUG
	}
	logging.Configure(logging.Options{ConsoleLevel: level, FileLevel: logging.OFF})
	if err := logging.InitDefaultLogger("objexport"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	ctx := context.Background()
	start := time.Now()

	gen := world.NewTerrainGenerator(cfg.World.Generator)
	w, err := world.Build(ctx, cfg.World.Size, gen, cfg.World.Workers)
	if err != nil {
		logging.Error("❌ Ошибка генерации мира: %v", err)
		os.Exit(1)
	}

	remesher := mesh.NewRemesher(w.Chunks, cfg.Mesh.Workers)
	defer remesher.Close()
	if _, err := remesher.Run(ctx); err != nil {
		logging.Error("❌ Ошибка построения мешей: %v", err)
		os.Exit(1)
	}

	path, st, err := export.WriteFiles(*outDir, *name, remesher.Store().All(), export.Options{Compress: *compress})
	if err != nil {
		logging.Error("❌ Ошибка экспорта: %v", err)
		os.Exit(1)
	}

	logging.Info("✅ %s: чанков %d, граней %d, вершин %d (сид %d, %v)",
		path, st.Chunks, st.Faces, st.Vertices, gen.Seed(), time.Since(start))
}

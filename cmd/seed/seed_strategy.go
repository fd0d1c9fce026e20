package main

import (
	"context"
	"flag"
	"log"
	"time"

	"sentinel-be/internal/config"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/fusion"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/pkg/database"
	"sentinel-be/pkg/embedding"
)

const seedRunId = "seed"

func main() {
	genomics := flag.Float64("w-genomics", fusion.DefaultState().WGenomics, "initial genomics weight")
	epi := flag.Float64("w-epi", fusion.DefaultState().WEpi, "initial epi/OSINT weight")
	geo := flag.Float64("w-geo", fusion.DefaultState().WGeo, "initial geo weight")
	threshold := flag.Float64("threshold", fusion.DefaultState().Threshold, "initial alert threshold")
	notes := flag.String("notes", "Baseline fusion weights", "strategy note stored with the seed row")
	force := flag.Bool("force", false, "seed even when strategy memory already has rows")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, database.WithLogLevel("warn"))
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	state := entity.FusionState{WGenomics: *genomics, WEpi: *epi, WGeo: *geo, Threshold: *threshold}
	if err := state.Validate(); err != nil {
		log.Fatalf("Error: weights must each be in [%.2f,%.2f] and sum to 1, threshold in [%.2f,%.2f]: %v",
			entity.MinFusionWeight, entity.MaxFusionWeight, entity.MinFusionThreshold, entity.MaxFusionThreshold, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)

	log.Println("Seeding Strategy Memory...")

	existing, err := uow.StrategyMemoryRepository().FindOne(ctx, specification.NewestFirst())
	if err != nil {
		log.Fatalf("Error: Failed to read strategy memory: %v", err)
	}
	if existing != nil && !*force {
		log.Printf("Strategy memory already holds state from run '%s', skipping...", existing.RunId)
		return
	}

	embedder := embedding.NewProvider(cfg.Ai.EmbeddingProvider, cfg.Ai.BaseURL, cfg.Ai.Region, cfg.Ai.APIKey, cfg.Ai.EmbeddingModelID, cfg.Ai.EmbeddingDim)
	vec, err := embedder.Embed(ctx, *notes)
	if err != nil {
		log.Fatalf("Error: Failed to embed strategy note: %v", err)
	}

	row := &entity.StrategyMemory{
		RunId:          seedRunId,
		StrategyNotes:  *notes,
		UpdatedPrompts: map[string]string{},
		Weights:        state.Weights(),
		Threshold:      state.Threshold,
		Embedding:      vec,
	}
	if err := uow.StrategyMemoryRepository().Create(ctx, row); err != nil {
		log.Fatalf("Error: Failed to seed strategy memory: %v", err)
	}

	log.Printf("Seeded fusion state: genomics=%.2f epi=%.2f geo=%.2f threshold=%.2f", state.WGenomics, state.WEpi, state.WGeo, state.Threshold)
	log.Println("Strategy seeding completed!")
}

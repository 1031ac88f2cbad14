// Command seed stores a couple of demo transformation revisions through the
// service layer: two draft components and a workflow chaining them, so a
// fresh deployment has something to list, edit and compile.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"pipeforge/backend/internal/config"
	"pipeforge/backend/internal/logging"
	"pipeforge/backend/internal/repository"
	"pipeforge/backend/internal/services"
	"pipeforge/backend/pkg/models"
)

func main() {
	ctx := context.Background()

	configFile := flag.String("config", "", "Path to config file")
	useMemory := flag.Bool("memory", false, "Seed an in-memory store (dry run)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	var store repository.RevisionStore
	if *useMemory {
		store = repository.NewInMemoryStore()
	} else {
		connStr := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
		)
		pool, err := pgxpool.New(ctx, connStr)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer pool.Close()

		pgStore := repository.NewPostgresRevisionStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
		store = pgStore
	}

	service := services.NewTransformationService(store, logger)

	scale := component("Scale", "Multiplies the input by a fixed factor.",
		[]models.Connector{
			{ID: uuid.New(), Name: "x", DataType: models.DataTypeFloat},
			{ID: uuid.New(), Name: "factor", DataType: models.DataTypeFloat},
		},
		[]models.Connector{
			{ID: uuid.New(), Name: "y", DataType: models.DataTypeFloat},
		})
	offset := component("Offset", "Adds a fixed amount to the input.",
		[]models.Connector{
			{ID: uuid.New(), Name: "x", DataType: models.DataTypeFloat},
			{ID: uuid.New(), Name: "amount", DataType: models.DataTypeFloat},
		},
		[]models.Connector{
			{ID: uuid.New(), Name: "y", DataType: models.DataTypeFloat},
		})

	for _, rev := range []*models.TransformationRevision{scale, offset} {
		if _, err := service.ValidateAndStore(ctx, rev, false); err != nil {
			log.Fatalf("Failed to seed component %s: %v", rev.Name, err)
		}
		logger.Infow("Seeded component", "name", rev.Name, "id", rev.ID)
	}

	workflow := chainWorkflow(scale, offset)
	if _, err := service.ValidateAndStore(ctx, workflow, false); err != nil {
		log.Fatalf("Failed to seed workflow: %v", err)
	}
	logger.Infow("Seeded workflow", "name", workflow.Name, "id", workflow.ID)
	logger.Info("Seeding complete!")
}

func component(name, description string, inputs, outputs []models.Connector) *models.TransformationRevision {
	return &models.TransformationRevision{
		ID:              uuid.New(),
		RevisionGroupID: uuid.New(),
		Name:            name,
		Description:     description,
		Category:        "Arithmetic",
		Documentation:   description,
		Type:            models.TypeComponent,
		State:           models.StateDraft,
		VersionTag:      "1.0.0",
		IOInterface:     models.IOInterface{Inputs: inputs, Outputs: outputs},
	}
}

// chainWorkflow wires workflow input x through scale into offset, feeds the
// remaining component inputs from constants, and exposes offset's result as
// workflow output y.
func chainWorkflow(scale, offset *models.TransformationRevision) *models.TransformationRevision {
	opScale := placeOperator(scale)
	opOffset := placeOperator(offset)

	wfInput := models.IOConnector{Connector: models.Connector{ID: uuid.New(), Name: "x", DataType: models.DataTypeFloat}}
	wfOutput := models.IOConnector{Connector: models.Connector{ID: uuid.New(), Name: "y", DataType: models.DataTypeFloat}}
	factor := models.Constant{ID: uuid.New(), DataType: models.DataTypeFloat, Value: "2.0"}
	amount := models.Constant{ID: uuid.New(), DataType: models.DataTypeFloat, Value: "1.0"}

	links := []models.Link{
		wire(nil, wfInput, &opScale.ID, opScale.Inputs[0]),
		wire(nil, constantConnector(factor), &opScale.ID, opScale.Inputs[1]),
		wire(&opScale.ID, opScale.Outputs[0], &opOffset.ID, opOffset.Inputs[0]),
		wire(nil, constantConnector(amount), &opOffset.ID, opOffset.Inputs[1]),
		wire(&opOffset.ID, opOffset.Outputs[0], nil, wfOutput),
	}

	return &models.TransformationRevision{
		ID:              uuid.New(),
		RevisionGroupID: uuid.New(),
		Name:            "Scale then Offset",
		Description:     "Chains the Scale and Offset components.",
		Category:        "Examples",
		Type:            models.TypeWorkflow,
		State:           models.StateDraft,
		VersionTag:      "1.0.0",
		IOInterface: models.IOInterface{
			Inputs:  []models.Connector{wfInput.Connector},
			Outputs: []models.Connector{wfOutput.Connector},
		},
		Content: models.Content{Workflow: &models.WorkflowContent{
			Inputs:    []models.IOConnector{wfInput},
			Outputs:   []models.IOConnector{wfOutput},
			Constants: []models.Constant{factor, amount},
			Operators: []models.Operator{opScale, opOffset},
			Links:     links,
		}},
	}
}

func placeOperator(target *models.TransformationRevision) models.Operator {
	op := models.Operator{
		ID:               uuid.New(),
		RevisionGroupID:  target.RevisionGroupID,
		Name:             target.Name,
		Type:             target.Type,
		State:            target.State,
		VersionTag:       target.VersionTag,
		TransformationID: target.ID,
	}
	for _, in := range target.IOInterface.Inputs {
		op.Inputs = append(op.Inputs, models.IOConnector{Connector: in})
	}
	for _, out := range target.IOInterface.Outputs {
		op.Outputs = append(op.Outputs, models.IOConnector{Connector: out})
	}
	return op
}

func constantConnector(c models.Constant) models.IOConnector {
	return models.IOConnector{Connector: models.Connector{ID: c.ID, DataType: c.DataType}}
}

func wire(fromOp *uuid.UUID, from models.IOConnector, toOp *uuid.UUID, to models.IOConnector) models.Link {
	return models.Link{
		ID:    uuid.New(),
		Start: models.Vertex{Operator: fromOp, Connector: from},
		End:   models.Vertex{Operator: toOp, Connector: to},
	}
}

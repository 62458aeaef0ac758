// Command lexrag indexes legal documents and answers questions over them
// from an interactive prompt. Answers carry citation markers back into
// the indexed passages; drafts that fail grounding validation are
// regenerated or suppressed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/internal/metrics"
	"github.com/lexrag/lexrag/llm/embedding"
	"github.com/lexrag/lexrag/llm/extract"
	"github.com/lexrag/lexrag/llm/generate"
	"github.com/lexrag/lexrag/llm/rerank"
	"github.com/lexrag/lexrag/rag"
	"github.com/lexrag/lexrag/types"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		configPath  = flag.String("config", "lexrag.yaml", "configuration file")
		docsDir     = flag.String("docs", "", "directory of .txt documents to index at startup")
		metricsAddr = flag.String("metrics-addr", ":9090", "prometheus listen address")
	)
	flag.Parse()

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	pipeline, err := buildPipeline(cfg, logger, *metricsAddr)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	ctx := context.Background()
	if *docsDir != "" {
		if err := ingestDir(ctx, pipeline, *docsDir, logger); err != nil {
			logger.Fatal("ingest failed", zap.Error(err))
		}
	}

	runPrompt(ctx, pipeline)
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func buildPipeline(cfg *config.Config, logger *zap.Logger, metricsAddr string) (*rag.Pipeline, error) {
	generator := generate.NewOpenAIProvider(generate.OpenAIConfig{
		BaseURL: cfg.Providers.Generate.BaseURL,
		APIKey:  cfg.Providers.Generate.APIKey,
		Model:   cfg.Providers.Generate.Model,
		Timeout: cfg.Providers.Generate.Timeout,
		RPS:     cfg.Providers.Generate.RPS,
	})

	var extractor extract.Provider = extract.NewRuleProvider()
	if cfg.Providers.Extract.Model != "" {
		extractor = extract.NewLLMProvider(generator, cfg.Providers.Extract.Model)
	}

	var embedder embedding.Provider
	if cfg.Providers.Embedding.BaseURL != "" {
		embedder = embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			BaseURL: cfg.Providers.Embedding.BaseURL,
			APIKey:  cfg.Providers.Embedding.APIKey,
			Model:   cfg.Providers.Embedding.Model,
			Timeout: cfg.Providers.Embedding.Timeout,
			RPS:     cfg.Providers.Embedding.RPS,
		})
	}

	var crossEncoder rerank.Provider
	if cfg.Providers.Rerank.BaseURL != "" {
		crossEncoder = rerank.NewHTTPProvider(rerank.HTTPConfig{
			BaseURL: cfg.Providers.Rerank.BaseURL,
			APIKey:  cfg.Providers.Rerank.APIKey,
			Model:   cfg.Providers.Rerank.Model,
			Timeout: cfg.Providers.Rerank.Timeout,
			RPS:     cfg.Providers.Rerank.RPS,
		})
	}

	graph := rag.SeedLegalGraph()
	if cfg.Knowledge.GraphPath != "" {
		loaded, err := rag.LoadKnowledgeGraph(cfg.Knowledge.GraphPath)
		if err != nil {
			return nil, err
		}
		graph = loaded
	}

	counter, err := rag.NewTiktokenCounter(cfg.Generation.TokenizerModel)
	if err != nil {
		logger.Warn("tokenizer unavailable, using estimator",
			zap.String("model", cfg.Generation.TokenizerModel), zap.Error(err))
	}

	var store rag.ConversationStore
	if cfg.Conversation.Store == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = rag.NewRedisStore(client, cfg.Conversation)
	} else {
		store = rag.NewMemoryStore(cfg.Conversation)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
		go serveMetrics(metricsAddr, logger)
	}

	index := rag.NewCorpusIndex(logger)
	return rag.NewPipeline(cfg, rag.PipelineDeps{
		Expander:  rag.NewExpander(extractor, graph, cfg.Knowledge.DecayBase, cfg.Knowledge.MaxDepth, logger),
		Retriever: rag.NewHybridRetriever(embedder, cfg.Retrieval, logger),
		Reranker:  rag.NewReranker(crossEncoder, cfg.Rerank.TopM, logger),
		Generator: rag.NewGenerator(generator, counter, cfg.Generation, logger),
		Validator: rag.NewValidator(cfg.Validation, logger),
		Index:     index,
		Embedder:  embedder,
		Store:     store,
		Metrics:   collector,
		Logger:    logger,
	}), nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

// ingestDir indexes every .txt file in a directory, one document per
// file, chunked on blank lines.
func ingestDir(ctx context.Context, pipeline *rag.Pipeline, dir string, logger *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		doc := buildDocument(entry.Name(), string(data))
		if err := pipeline.IndexDocument(ctx, doc); err != nil {
			return err
		}
		logger.Info("indexed", zap.String("file", entry.Name()), zap.Int("chunks", doc.TotalChunks))
	}
	return nil
}

func buildDocument(filename, content string) *types.Document {
	id := strings.TrimSuffix(filename, filepath.Ext(filename))
	doc := &types.Document{ID: id, Filename: filename, IngestedAt: time.Now()}
	for i, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		doc.Chunks = append(doc.Chunks, types.Chunk{
			DocID: id,
			Index: len(doc.Chunks),
			Page:  i + 1,
			Text:  para,
		})
	}
	doc.TotalChunks = len(doc.Chunks)
	return doc
}

func runPrompt(ctx context.Context, pipeline *rag.Pipeline) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	conversationID := ""

	fmt.Println("lexrag ready. Ask a question, or 'exit' to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		answer, err := pipeline.Answer(ctx, conversationID, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		conversationID = answer.ConversationID

		fmt.Println(answer.Text)
		for _, c := range answer.Citations {
			fmt.Printf("  [%s] p.%d %s\n", c.Ref, c.Page, c.Excerpt)
		}
		if !answer.Grounded {
			fmt.Printf("  (outcome: %s)\n", answer.Outcome)
		}
	}
}

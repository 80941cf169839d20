package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"sort"
	"time"

	"opsguard/common/model"
	"opsguard/internal/bootstrap"
	"opsguard/internal/business/anomaly"
	"opsguard/internal/business/classifier"
	"opsguard/internal/business/embedding"
	"opsguard/internal/business/notify"
	"opsguard/internal/business/pipeline"
	"opsguard/pkg/config"
	mysqlx "opsguard/pkg/infra/mysql"
	"opsguard/pkg/logger"
)

var (
	configPath   = flag.String("config", "./config/worker.yaml", "配置文件路径")
	testcasePath = flag.String("testcase", "./tools/fasttest/testcase/events.json", "测试用例路径")
	skipDB       = flag.Bool("skip-db", true, "跳过 MySQL/Redis，使用进程内存储（仅测试业务逻辑）")
)

// TestCase 测试用例结构
type TestCase struct {
	Source       string                 `json:"source"`
	Type         string                 `json:"type"`
	Payload      string                 `json:"payload"`
	Metadata     map[string]interface{} `json:"metadata"`
	ExpectLabels []string               `json:"expect_labels"` // nil 表示不校验
}

// eventStore 用例写入 + 流水线读取
type eventStore interface {
	InsertRawEvent(ctx context.Context, ev *model.RawEvent) (int64, error)
}

// incidentReader 校验用
type incidentReader interface {
	GetIncident(ctx context.Context, id int64) (*model.Incident, error)
}

func main() {
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("  FastTest - OPSGUARD 流水线快速测试工具")
	fmt.Println("========================================")

	testCases, err := loadTestCases(*testcasePath)
	if err != nil {
		fmt.Printf("❌ Failed to load test cases: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Loaded %d test cases from %s\n", len(testCases), *testcasePath)

	ctx := context.Background()
	log := logger.NewNop()

	var (
		orch      *pipeline.Orchestrator
		events    eventStore
		incidents incidentReader
	)
	if *skipDB {
		fmt.Println("⚠️  Skip-DB mode: in-memory stores, hash embeddings, stdout notifications")
		mem := newMemStore()
		orch = pipeline.New(pipeline.Deps{
			Events:     mem,
			Incidents:  mem,
			Classifier: classifier.New(),
			Anomaly:    anomaly.NewDetector(anomaly.NewMemoryStore(), anomaly.WithCapacity(20)),
			Embedder:   embedding.NewService(embedding.NewHashModel(384), log),
			Notifier:   notify.NewFanout(stdoutChannel{}, log),
		}, log)
		events, incidents = mem, mem
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Printf("❌ Failed to load config: %v\n", err)
			os.Exit(1)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("❌ Config validation failed: %v\n", err)
			os.Exit(1)
		}
		infra, err := bootstrap.OpenInfra(ctx, cfg, log)
		if err != nil {
			fmt.Printf("❌ Failed to connect: %v\n", err)
			os.Exit(1)
		}
		defer infra.Close()

		orch = bootstrap.NewPipeline(cfg, infra, log)
		events = mysqlx.NewEventDAO(infra.DB)
		incidents = mysqlx.NewIncidentDAO(infra.DB)
		fmt.Println("✅ Database and Redis initialized")
	}

	fmt.Println("\n========================================")
	fmt.Println("  Running Test Cases")
	fmt.Println("========================================")

	successCount, failureCount := 0, 0
	for i, tc := range testCases {
		fmt.Printf("\n[Test %d/%d] source=%s type=%s payload=%q\n", i+1, len(testCases), tc.Source, tc.Type, tc.Payload)
		fmt.Println("----------------------------------------")

		start := time.Now()
		err := runTestCase(ctx, orch, events, incidents, tc)
		if err != nil {
			fmt.Printf("❌ FAILED: %v\n", err)
			failureCount++
		} else {
			fmt.Printf("✅ PASSED\n")
			successCount++
		}
		fmt.Printf("⏱️  Duration: %v\n", time.Since(start))
	}

	fmt.Println("\n========================================")
	fmt.Println("  Test Summary")
	fmt.Println("========================================")
	fmt.Printf("Total: %d\n", len(testCases))
	fmt.Printf("Passed: %d ✅\n", successCount)
	fmt.Printf("Failed: %d ❌\n", failureCount)

	if failureCount > 0 {
		os.Exit(1)
	}
}

func loadTestCases(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read testcase file: %w", err)
	}

	var testCases []TestCase
	if err := json.Unmarshal(data, &testCases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal testcase: %w", err)
	}
	return testCases, nil
}

// runTestCase 写入事件 → 执行流水线 → 校验事故标签
func runTestCase(ctx context.Context, orch *pipeline.Orchestrator, events eventStore, incidents incidentReader, tc TestCase) error {
	eventID, err := events.InsertRawEvent(ctx, &model.RawEvent{
		Source:   tc.Source,
		Kind:     model.EventKind(tc.Type),
		Payload:  tc.Payload,
		Metadata: tc.Metadata,
	})
	if err != nil {
		return fmt.Errorf("insert event failed: %w", err)
	}

	out := orch.Process(ctx, eventID)
	if !out.Processed() {
		return fmt.Errorf("event %d not processed: state=%s failed_at=%s err=%v", eventID, out.State, out.FailedAt, out.Err)
	}

	inc, err := incidents.GetIncident(ctx, out.IncidentID)
	if err != nil {
		return fmt.Errorf("load incident %d failed: %w", out.IncidentID, err)
	}

	fmt.Printf("  Incident: id=%d labels=%v confidence=%.3f\n", inc.ID, inc.Labels, inc.Confidence)
	if inc.AnomalyScore != nil {
		fmt.Printf("  Anomaly score: %.2f\n", *inc.AnomalyScore)
	}
	for _, ev := range inc.Evidence {
		fmt.Printf("    - %s\n", ev)
	}
	if len(out.Degraded) > 0 {
		fmt.Printf("  Degraded steps: %v\n", out.Degraded)
	}

	if tc.ExpectLabels != nil {
		got := append([]string{}, inc.Labels...)
		want := append([]string{}, tc.ExpectLabels...)
		sort.Strings(got)
		sort.Strings(want)
		if !reflect.DeepEqual(got, want) {
			return fmt.Errorf("labels mismatch: want %v, got %v", want, got)
		}
	}
	return nil
}

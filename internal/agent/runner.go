package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"sentinel-be/pkg/llm"
)

// Input is everything a stage sees for one case.
type Input struct {
	Payload map[string]interface{}
	Rag     map[string]interface{}
	Notes   []string
}

// Stage is one scoring step. Fallback must be deterministic and must not
// touch anything outside its input.
type Stage[T any] interface {
	Name() string
	Fallback(in Input) (T, error)
}

type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	Multiplier   float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, InitialDelay: 600 * time.Millisecond, Multiplier: 2}
}

type runnerOptions struct {
	retry  RetryPolicy
	logger *log.Logger
}

type RunnerOption func(*runnerOptions)

func WithRetryPolicy(p RetryPolicy) RunnerOption {
	return func(o *runnerOptions) {
		o.retry = p
	}
}

func WithLogger(l *log.Logger) RunnerOption {
	return func(o *runnerOptions) {
		o.logger = l
	}
}

// Runner executes a stage against the scoring model with retry, JSON
// extraction, one repair round and validation, and drops to the stage's
// fallback whenever the model gives nothing usable. A nil provider means
// fallback only.
type Runner[T any] struct {
	stage    Stage[T]
	provider llm.LLMProvider
	modelID  string
	prompt   Prompt
	retry    RetryPolicy
	validate *validator.Validate
	logger   *log.Logger
}

func NewRunner[T any](stage Stage[T], prompt Prompt, provider llm.LLMProvider, modelID string, opts ...RunnerOption) *Runner[T] {
	o := runnerOptions{retry: DefaultRetryPolicy(), logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.retry.Attempts <= 0 {
		o.retry.Attempts = 1
	}
	if o.retry.Multiplier <= 0 {
		o.retry.Multiplier = 1
	}
	return &Runner[T]{
		stage:    stage,
		provider: provider,
		modelID:  modelID,
		prompt:   prompt,
		retry:    o.retry,
		validate: validator.New(),
		logger:   o.logger,
	}
}

func (r *Runner[T]) Name() string {
	return r.stage.Name()
}

// Run returns the validated model output, or the fallback. Exhausted
// retries are returned as errors; they are fatal for the case.
func (r *Runner[T]) Run(ctx context.Context, in Input) (T, error) {
	if r.provider != nil {
		prompt := BuildPrompt(r.prompt, in)
		r.logger.Printf("[DEBUG] %s prompt size: %d chars", r.Name(), len(prompt))

		obj, err := r.generateObject(ctx, prompt)
		if err != nil {
			var zero T
			return zero, err
		}
		if obj != nil {
			out, err := r.Decode(obj)
			if err == nil {
				return out, nil
			}
			r.logger.Printf("[WARN] %s output failed schema validation, using fallback: %v", r.Name(), err)
		} else {
			r.logger.Printf("[WARN] %s output had no JSON object after repair, using fallback", r.Name())
		}
	}

	out, err := r.stage.Fallback(in)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s fallback: %w", r.Name(), err)
	}
	if err := r.validate.Struct(out); err != nil {
		var zero T
		return zero, fmt.Errorf("%s fallback produced invalid output: %w", r.Name(), err)
	}
	return out, nil
}

func (r *Runner[T]) generateObject(ctx context.Context, prompt string) (map[string]interface{}, error) {
	raw, err := r.invokeWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if obj, ok := ExtractJSON(raw); ok {
		return obj, nil
	}

	repaired, err := r.invokeWithRetry(ctx, repairPrompt(r.prompt, raw))
	if err != nil {
		return nil, err
	}
	obj, _ := ExtractJSON(repaired)
	return obj, nil
}

func (r *Runner[T]) invokeWithRetry(ctx context.Context, prompt string) (string, error) {
	var opts []llm.Option
	if r.modelID != "" {
		opts = append(opts, llm.WithModel(r.modelID))
	}

	delay := r.retry.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= r.retry.Attempts; attempt++ {
		raw, err := r.provider.Generate(ctx, prompt, opts...)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		r.logger.Printf("[WARN] %s model attempt %d/%d failed: %v", r.Name(), attempt, r.retry.Attempts, err)

		if errors.Is(err, llm.ErrPermanent) || attempt == r.retry.Attempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%s stage: %w", r.Name(), err)
		}
		delay = time.Duration(float64(delay) * r.retry.Multiplier)
	}
	return "", fmt.Errorf("%s stage: %w", r.Name(), lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Decode maps a model object onto T. Every field without omitempty must be
// present, and the validate tags must hold.
func (r *Runner[T]) Decode(obj map[string]interface{}) (T, error) {
	var out T
	if missing := missingFields(reflect.TypeOf(out), obj); len(missing) > 0 {
		return out, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return out, fmt.Errorf("marshal output: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode output: %w", err)
	}
	if err := r.validate.Struct(out); err != nil {
		return out, err
	}
	return out, nil
}

func missingFields(t reflect.Type, obj map[string]interface{}) []string {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var missing []string
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" || strings.Contains(tag, "omitempty") {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if v, ok := obj[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// ToMap renders a stage output as the JSON-shaped map later stages consume.
func ToMap(v interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	data, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}

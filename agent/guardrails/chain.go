package guardrails

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ChainMode 验证器链执行模式
type ChainMode string

const (
	// ChainModeFailFast 快速失败模式：遇到第一个失败立即停止
	ChainModeFailFast ChainMode = "fail_fast"
	// ChainModeCollectAll 收集全部模式：执行所有验证器并收集所有结果
	ChainModeCollectAll ChainMode = "collect_all"
	// ChainModeParallel 并行模式：并行执行所有验证器并收集结果
	ChainModeParallel ChainMode = "parallel"
)

// ValidatorChain 验证器链
// 按优先级顺序执行多个验证器并聚合结果。链本身也实现 Validator。
type ValidatorChain struct {
	name       string
	validators []Validator
	mode       ChainMode
	mu         sync.RWMutex
}

// NewValidatorChain 创建验证器链，mode 为空时使用 ChainModeCollectAll
func NewValidatorChain(name string, mode ChainMode, validators ...Validator) *ValidatorChain {
	if mode == "" {
		mode = ChainModeCollectAll
	}
	if name == "" {
		name = "validator_chain"
	}
	c := &ValidatorChain{name: name, mode: mode}
	c.Add(validators...)
	return c
}

// Name 返回验证器链名称
func (c *ValidatorChain) Name() string { return c.name }

// Priority 返回验证器链优先级（作为整体的优先级）
func (c *ValidatorChain) Priority() int { return 0 }

// Mode 返回执行模式
func (c *ValidatorChain) Mode() ChainMode { return c.mode }

// Add 添加验证器到链中
func (c *ValidatorChain) Add(validators ...Validator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validators = append(c.validators, validators...)
}

// Validators 返回按优先级排序的验证器列表
func (c *ValidatorChain) Validators() []Validator {
	c.mu.RLock()
	sorted := make([]Validator, len(c.validators))
	copy(sorted, c.validators)
	c.mu.RUnlock()

	sortValidatorsByPriority(sorted)
	return sorted
}

// Len 返回验证器数量
func (c *ValidatorChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.validators)
}

// Validate 执行验证器链
// 验证器自身返回 error 时记为 VALIDATION_FAILED；Tripwire 无论模式都立即中断。
func (c *ValidatorChain) Validate(ctx context.Context, content string) (*ValidationResult, error) {
	validators := c.Validators()
	if c.mode == ChainModeParallel {
		return c.validateParallel(ctx, validators, content)
	}

	result := NewValidationResult()
	for _, v := range validators {
		if err := ctx.Err(); err != nil {
			result.AddError(ValidationError{
				Code:     ErrCodeValidationFailed,
				Message:  "validation canceled: " + err.Error(),
				Severity: SeverityMedium,
			})
			return result, err
		}

		vResult, err := v.Validate(ctx, content)
		result.Executed = append(result.Executed, v.Name())
		if err != nil {
			result.AddError(validatorFailure(v.Name(), err))
			if c.mode == ChainModeFailFast {
				return result, err
			}
			continue
		}

		result.Merge(vResult)
		if vResult.Tripwire {
			return result, &TripwireError{ValidatorName: v.Name(), Result: result}
		}
		if c.mode == ChainModeFailFast && !vResult.Valid {
			return result, nil
		}
	}

	return result, nil
}

// validateParallel 并行执行所有验证器，结果按优先级顺序合并。
// 任一验证器触发 Tripwire 时取消其余验证器。
func (c *ValidatorChain) validateParallel(ctx context.Context, validators []Validator, content string) (*ValidationResult, error) {
	type outcome struct {
		result *ValidationResult
		err    error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]outcome, len(validators))
	var tripwireOnce sync.Once
	var tripwireName string

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range validators {
		g.Go(func() error {
			vResult, err := v.Validate(gctx, content)
			outcomes[i] = outcome{result: vResult, err: err}
			if err == nil && vResult != nil && vResult.Tripwire {
				tripwireOnce.Do(func() {
					tripwireName = v.Name()
					cancel()
				})
			}
			// 不返回 err，避免 errgroup 取消其他验证器
			return nil
		})
	}
	_ = g.Wait()

	result := NewValidationResult()
	for i, o := range outcomes {
		name := validators[i].Name()
		if o.err != nil {
			result.AddError(validatorFailure(name, o.err))
			continue
		}
		if o.result == nil {
			continue
		}
		result.Executed = append(result.Executed, name)
		result.Merge(o.result)
	}

	if tripwireName != "" {
		return result, &TripwireError{ValidatorName: tripwireName, Result: result}
	}
	return result, nil
}

func validatorFailure(name string, err error) ValidationError {
	return ValidationError{
		Code:     ErrCodeValidationFailed,
		Message:  "validator " + name + " failed: " + err.Error(),
		Severity: SeverityCritical,
	}
}

// sortValidatorsByPriority 按优先级稳定排序（数字越小优先级越高）
func sortValidatorsByPriority(validators []Validator) {
	sort.SliceStable(validators, func(i, j int) bool {
		return validators[i].Priority() < validators[j].Priority()
	})
}

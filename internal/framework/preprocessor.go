package framework

import (
	"context"
	"fmt"
)

// Step 函数链中的一个命名步骤
type Step struct {
	Name string
	Run  ProcessorFunc
}

// StepError 步骤失败
type StepError struct {
	Index int
	Step  string
	Err   error
}

// Error 实现 error 接口
func (e *StepError) Error() string {
	return fmt.Sprintf("step[%d] %s failed: %v", e.Index, e.Step, e.Err)
}

// Unwrap 保留原始错误链
func (e *StepError) Unwrap() error {
	return e.Err
}

// PreProcessor 函数链处理器
type PreProcessor struct {
	steps []Step
}

// NewPreProcessor 创建函数链处理器
func NewPreProcessor(steps ...Step) *PreProcessor {
	return &PreProcessor{
		steps: steps,
	}
}

// Run 按顺序执行函数链
// 任一步骤返回 error 则立即停止，返回 *StepError
func (p *PreProcessor) Run(ctx context.Context) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Index: i, Step: step.Name, Err: err}
		}
		if err := step.Run(ctx); err != nil {
			return &StepError{Index: i, Step: step.Name, Err: err}
		}
	}
	return nil
}

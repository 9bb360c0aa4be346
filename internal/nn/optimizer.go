package nn

import "micrograd/internal/engine"

// SGD applies p -= lr*grad, optionally with classical momentum.
type SGD struct {
	LearningRate float64
	Momentum     float64

	velocity map[*engine.Value]float64
}

func (o *SGD) Step(params []*engine.Value) {
	if o.Momentum == 0 {
		for _, p := range params {
			p.SetData(p.Data() - o.LearningRate*p.Grad())
		}
		return
	}
	if o.velocity == nil {
		o.velocity = make(map[*engine.Value]float64, len(params))
	}
	for _, p := range params {
		v := o.Momentum*o.velocity[p] - o.LearningRate*p.Grad()
		o.velocity[p] = v
		p.SetData(p.Data() + v)
	}
}

// LinearDecay interpolates from start at step 0 to end at step total.
func LinearDecay(start, end float64, step, total int) float64 {
	if total <= 0 || step >= total {
		return end
	}
	if step <= 0 {
		return start
	}
	return start - (start-end)*float64(step)/float64(total)
}

package chain

import (
	"fmt"
	"io"
	"math/big"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/fundme/util"
)

// GasStats 单个合约方法的 gas 统计
type GasStats struct {
	Contract string
	Method   string
	Calls    int
	Min      uint64
	Max      uint64
	Total    uint64
}

func (s GasStats) Avg() uint64 {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / uint64(s.Calls)
}

type GasReporter struct {
	mu    sync.Mutex
	stats map[string]*GasStats
}

func NewGasReporter() *GasReporter {
	return &GasReporter{stats: map[string]*GasStats{}}
}

func (r *GasReporter) Record(contractName, method string, gas uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := contractName + "#" + method
	s, ok := r.stats[key]
	if !ok {
		s = &GasStats{Contract: contractName, Method: method, Min: gas}
		r.stats[key] = s
	}
	s.Calls++
	s.Total += gas
	if gas < s.Min {
		s.Min = gas
	}
	if gas > s.Max {
		s.Max = gas
	}
}

// Stats 按合约、方法排序
func (r *GasReporter) Stats() []GasStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GasStats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Contract != out[j].Contract {
			return out[i].Contract < out[j].Contract
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// WriteReport 输出文本表格，gasPrice 用于估算平均花费
func (r *GasReporter) WriteReport(w io.Writer, gasPrice *big.Int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Contract\tMethod\tMin\tMax\tAvg\t# calls\tavg cost (ETH)\n")
	for _, s := range r.Stats() {
		cost := new(big.Int).Mul(new(big.Int).SetUint64(s.Avg()), gasPrice)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			s.Contract, s.Method, s.Min, s.Max, s.Avg(), s.Calls, util.FormatEther(cost))
	}
	return tw.Flush()
}

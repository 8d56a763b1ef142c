package contract

import "github.com/fundme/commoncon"

// GasMeter 记录一笔交易的 gas 消耗，同一交易内已访问的槽和地址按 warm 计费
type GasMeter struct {
	limit     uint64
	used      uint64
	warmSlots map[string]struct{}
	warmAddrs map[string]struct{}
}

func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{
		limit:     limit,
		warmSlots: map[string]struct{}{},
		warmAddrs: map[string]struct{}{},
	}
}

func (g *GasMeter) Consume(n uint64) error {
	if g.used+n > g.limit {
		g.used = g.limit
		return ErrOutOfGas
	}
	g.used += n
	return nil
}

func (g *GasMeter) Used() uint64 {
	return g.used
}

// 标记为已访问，返回此前是否为 cold
func (g *GasMeter) touchSlot(address, key string) bool {
	k := address + "/" + key
	if _, ok := g.warmSlots[k]; ok {
		return false
	}
	g.warmSlots[k] = struct{}{}
	return true
}

func (g *GasMeter) ConsumeSload(address, key string) error {
	if g.touchSlot(address, key) {
		return g.Consume(commoncon.ColdSloadGas)
	}
	return g.Consume(commoncon.WarmSloadGas)
}

func (g *GasMeter) ConsumeSstore(address, key string, exists bool) error {
	var cost uint64
	if g.touchSlot(address, key) {
		cost += commoncon.ColdSloadGas
	}
	if exists {
		cost += commoncon.SstoreResetGas
	} else {
		cost += commoncon.SstoreSetGas
	}
	return g.Consume(cost)
}

func (g *GasMeter) ConsumeCall(address string, withValue bool) error {
	var cost uint64
	if _, ok := g.warmAddrs[address]; ok {
		cost = commoncon.WarmCallGas
	} else {
		g.warmAddrs[address] = struct{}{}
		cost = commoncon.ColdCallGas
	}
	if withValue {
		cost += commoncon.CallValueGas
	}
	return g.Consume(cost)
}

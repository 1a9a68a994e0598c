package domain

import (
	"context"
	"errors"
	"strings"
)

var ErrRegionRequired = errors.New("region is required")

// Zone 是一个配送区域及其运费。
type Zone struct {
	Region   string
	Fee      float64
	IsActive bool
}

// ZoneRepository 读取配送区域表。
type ZoneRepository interface {
	ListActive(ctx context.Context) ([]Zone, error)
}

// RegionKey 是区域名的比较键：去掉首尾空白，忽略拉丁字母大小写。
func RegionKey(region string) string {
	return strings.ToLower(strings.TrimSpace(region))
}

// FeeTable 按区域键索引运费。
type FeeTable map[string]float64

func NewFeeTable(zones []Zone) FeeTable {
	t := make(FeeTable, len(zones))
	for _, z := range zones {
		if !z.IsActive {
			continue
		}
		t[RegionKey(z.Region)] = z.Fee
	}
	return t
}

// Lookup 返回区域的运费，未知区域返回 false。
func (t FeeTable) Lookup(region string) (float64, bool) {
	fee, ok := t[RegionKey(region)]
	return fee, ok
}

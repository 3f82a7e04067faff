package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignmentFields(t *testing.T) {
	tests := []struct {
		name      string
		assign    Assignment
		coreList  string
		numaNode  string
		coreCount int
	}{
		{
			name:      "cpu descriptor",
			assign:    "0,1,2,3;0",
			coreList:  "0,1,2,3",
			numaNode:  "0",
			coreCount: 4,
		},
		{
			name:      "single core",
			assign:    "7;1",
			coreList:  "7",
			numaNode:  "1",
			coreCount: 1,
		},
		{
			name:      "cuda device index",
			assign:    "2",
			coreList:  "2",
			numaNode:  "",
			coreCount: 1,
		},
		{
			name:      "cuda device list",
			assign:    "0,1",
			coreList:  "0,1",
			numaNode:  "",
			coreCount: 2,
		},
		{
			name:      "empty descriptor",
			assign:    "",
			coreList:  "",
			numaNode:  "",
			coreCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.coreList, tt.assign.CoreList())
			assert.Equal(t, tt.numaNode, tt.assign.NUMANode())
			assert.Equal(t, tt.coreCount, tt.assign.CoreCount())
		})
	}
}

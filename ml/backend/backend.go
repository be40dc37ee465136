package backend

import (
	_ "github.com/riskgpu/riskgpu/ml/backend/host"
	_ "github.com/riskgpu/riskgpu/ml/backend/opencl"
)

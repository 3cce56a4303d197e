// Copyright (c) 2025, the apigate authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/apigate/apigate/pkg/errors"
)

func TestNewPipResolver(t *testing.T) {
	r := NewPipResolver()
	assert.Equal(t, "python3", r.Python)
}

func TestPipResolverMissingInterpreter(t *testing.T) {
	r := &PipResolver{Python: "definitely-not-an-interpreter"}

	err := r.Resolve(context.Background(), "requirements.txt", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBuildFailed, apperrors.CodeOf(err))
}

// SPDX-License-Identifier: MPL-2.0

package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze_NoFindings(t *testing.T) {
	findings := Analyze("print('hello world')")
	assert.Empty(t, findings)
}

func TestAnalyze_MultipleTokensInCatalogueOrder(t *testing.T) {
	findings := Analyze("import os\nos.system('ls')")
	assert.Len(t, findings, 2)
	assert.Equal(t, "import os", findings[0].Token)
	assert.Equal(t, "os.system", findings[1].Token)
}

func TestAnalyze_DynamicEval(t *testing.T) {
	findings := Analyze("eval(user_input)")
	assert.Len(t, findings, 1)
	assert.Equal(t, "dynamic code evaluation", findings[0].Category)
}

func TestAnalyze_DoesNotMutateState(t *testing.T) {
	first := Analyze("eval(1)")
	second := Analyze("eval(1)")
	assert.Equal(t, first, second)
}

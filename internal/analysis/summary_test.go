package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitlens/internal/jitlog"
)

const summaryLog = `<task compile_id='1' method='com/example/Foo run ()V' bytes='20' level='4'>
<type id='700' name='int'/>
<klass id='720' name='java/lang/String'/>
<method id='731' holder='720' name='length' return='700'/>
<method id='732' holder='720' name='hashCode' return='700'/>
<parse method='730'>
<bc code='182' bci='1'/>
<call method='731'/>
<inline_success reason='inline (hot)'/>
<bc code='182' bci='5'/>
<call method='732'/>
<inline_fail reason='too large'/>
<bc code='182' bci='9'/>
<call method='732'/>
<inline_fail reason='too large'/>
</parse>
<task_done success='1' nmsize='100'/>
</task>
<task compile_id='2' method='com/example/Foo walk ()V' osr_bci='8' bytes='30' level='4'>
<parse method='733'>
<bc code='182' bci='0'/>
<uncommon_trap bci='0' reason='null_check' action='maybe_recompile'/>
</parse>
<task_done success='0'/>
</task>
`

func TestSummarize(t *testing.T) {
	model, err := jitlog.Parse(strings.NewReader(summaryLog), nil)
	require.NoError(t, err)

	s := Summarize(model, 5)
	assert.Equal(t, 1, s.Classes)
	assert.Equal(t, 2, s.Members)
	assert.Equal(t, 2, s.Compilations)
	assert.Equal(t, 1, s.OSR)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Inlined)
	assert.Equal(t, 2, s.InlineFailed)
	assert.Equal(t, 1, s.Traps)
	assert.Equal(t, 0, s.Eliminations)

	require.Len(t, s.TopInlineFailReasons, 1)
	assert.Equal(t, ReasonCount{Reason: "too large", Count: 2}, s.TopInlineFailReasons[0])
}

func TestSummarize_NilModel(t *testing.T) {
	assert.Zero(t, Summarize(nil, 5))
}

func TestSummarize_ReasonLimit(t *testing.T) {
	model, err := jitlog.Parse(strings.NewReader(summaryLog), nil)
	require.NoError(t, err)

	s := Summarize(model, 0)
	assert.Len(t, s.TopInlineFailReasons, 1)
}

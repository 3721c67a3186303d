package setflag_test

import (
	"flag"
	"testing"

	"github.com/amonks/bandcruise/setflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	sf := setflag.New("Show", "Meet and Greet", "Clinic")
	assert.True(t, sf.Has("Clinic"), "empty set has everything")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(sf, "type", "")
	require.NoError(t, fs.Parse([]string{"-type", "show, meet and greet", "-type", "Show"}))

	assert.Equal(t, []string{"Meet and Greet", "Show"}, sf.List())
	assert.True(t, sf.Has("Show"))
	assert.False(t, sf.Has("Clinic"))
	assert.Equal(t, "Meet and Greet, Show", sf.String())
}

func TestSetRejectsUnknown(t *testing.T) {
	sf := setflag.New("Show", "Clinic")
	err := sf.Set("Show,Karaoke")
	assert.ErrorContains(t, err, "unsupported value 'Karaoke'; options are Clinic, Show")
}

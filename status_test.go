// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package localcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunabay/go-infounit"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, "", "")
	_, err := c.Add(make([]byte, 1000), "a", "")
	require.NoError(t, err)
	_, err = c.Add(make([]byte, 24), "b", "")
	require.NoError(t, err)
	_, err = c.Add(nil, "%zz", "")
	require.Error(t, err)
	_, _, err = c.Data("a", "")
	require.NoError(t, err)
	_, _, err = c.Data("c", "")
	require.NoError(t, err)
	require.NoError(t, c.Remove("b", ""))

	st := c.Status()
	assert.Equal(t, uint64(1), st.NumFiles)
	assert.Equal(t, infounit.ByteCount(1000), st.TotalSize)
	assert.Equal(t, uint64(2), st.NumAdded)
	assert.Equal(t, uint64(1), st.NumAddFailed)
	assert.Equal(t, uint64(1), st.NumHit)
	assert.Equal(t, uint64(1), st.NumMissed)
	assert.Equal(t, uint64(1), st.NumRemoved)
	assert.Equal(t, uint64(0), st.NumPurged)
	assert.Equal(t, 0, st.NumAsync)

	s := st.String()
	assert.Contains(t, s, "files=1")
	assert.Contains(t, s, "add=2")
	assert.Contains(t, s, "miss=1")
}

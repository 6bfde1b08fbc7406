package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	user := &User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.edu",
		PasswordHash: "$2a$10$hash",
		Role:         RoleStudent,
		Student:      &StudentProfile{StudentNumber: "STUAB12CD34", Major: "Mathematics"},
		Active:       true,
		LastLogin:    &now,
		CreatedAt:    now,
	}

	decoded, err := UserFromRecord(user.Record())
	require.NoError(t, err)
	assert.Equal(t, user.ID, decoded.ID)
	assert.Equal(t, user.PasswordHash, decoded.PasswordHash)
	require.NotNil(t, decoded.Student)
	assert.Equal(t, "STUAB12CD34", decoded.Student.StudentNumber)
	assert.Nil(t, decoded.Admin)
	require.NotNil(t, decoded.LastLogin)
	assert.True(t, decoded.LastLogin.Equal(now))
}

func TestUserFromRecordRejectsCorruptData(t *testing.T) {
	valid := UserRecord{
		ID:        "u-1",
		Username:  "alice",
		Role:      string(RoleStudent),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	missingID := valid
	missingID.ID = ""
	_, err := UserFromRecord(missingID)
	assert.Error(t, err)

	badRole := valid
	badRole.Role = "PROFESSOR"
	_, err = UserFromRecord(badRole)
	assert.Error(t, err)

	badCreated := valid
	badCreated.CreatedAt = "not-a-date"
	_, err = UserFromRecord(badCreated)
	assert.Error(t, err)
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	user := &User{
		ID:           "u-1",
		Username:     "alice",
		PasswordHash: "secret",
		Role:         RoleStudent,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestUserCloneIsolation(t *testing.T) {
	user := &User{
		ID:       "u-1",
		Username: "alice",
		Role:     RoleStudent,
		Student:  &StudentProfile{StudentNumber: "STU1", Major: "Physics"},
	}

	clone := user.Clone()
	clone.Student.Major = "Chemistry"

	assert.Equal(t, "Physics", user.Student.Major)
}

package csvparse

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrain_Valid(t *testing.T) {
	content := `title,type,value,category
Lunch,outcome,20,Food
Salary,income,1000,Salary`

	batch, err := Drain(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	require.Len(t, batch.Rows, 2)
	assert.Equal(t, Row{Line: 2, Title: "Lunch", Type: "outcome", Value: "20", Category: "Food"}, batch.Rows[0])
	assert.Equal(t, "Salary", batch.Rows[1].Category)
	assert.Equal(t, []string{"Food", "Salary"}, batch.Categories)
	assert.Empty(t, batch.Rejected)
}

func TestDrain_Whitespace(t *testing.T) {
	content := " title , type , value , category \n  Lunch , outcome , 20.5 ,  Food  \n"

	batch, err := Drain(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "Lunch", batch.Rows[0].Title)
	assert.Equal(t, "20.5", batch.Rows[0].Value)
	assert.Equal(t, "Food", batch.Rows[0].Category)
}

func TestDrain_RejectsIncompleteRows(t *testing.T) {
	content := `title,type,value,category
Lunch,outcome,20,Food
,outcome,5,Food
Coffee,,3,Food
Tea,outcome,,Food
Snack,outcome
Gift,income,50,`

	batch, err := Drain(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "Lunch", batch.Rows[0].Title)
	assert.Equal(t, "Gift", batch.Rows[1].Title)
	assert.Equal(t, "", batch.Rows[1].Category, "empty category is kept as a literal name")
	assert.Equal(t, []string{"Food", ""}, batch.Categories)

	require.Len(t, batch.Rejected, 4)
	assert.Equal(t, Rejected{Line: 3, Reason: "missing title"}, batch.Rejected[0])
	assert.Equal(t, "missing type", batch.Rejected[1].Reason)
	assert.Equal(t, "missing value", batch.Rejected[2].Reason)
	assert.Equal(t, 6, batch.Rejected[3].Line)
}

func TestDrain_DuplicateCategoriesKept(t *testing.T) {
	content := "title,type,value,category\na,income,1,Food\nb,income,2,Food\nc,income,3,food\n"

	batch, err := Drain(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Food", "food"}, batch.Categories)
}

func TestDrain_QuotedFields(t *testing.T) {
	content := "title,type,value,category\n\"Dinner, with friends\",outcome,\"12,50\",\"Eating out\"\n"

	batch, err := Drain(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "Dinner, with friends", batch.Rows[0].Title)
	assert.Equal(t, "12,50", batch.Rows[0].Value)
}

func TestDrain_Empty(t *testing.T) {
	batch, err := Drain(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, batch.Rows)
	assert.Empty(t, batch.Rejected)
}

func TestDrain_HeaderOnly(t *testing.T) {
	batch, err := Drain(context.Background(), strings.NewReader("title,type,value,category\n"))
	require.NoError(t, err)
	assert.Empty(t, batch.Rows)
}

func TestDrain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Drain(ctx, strings.NewReader("title,type,value,category\na,income,1,x\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

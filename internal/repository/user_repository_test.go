package repository

import (
	"errors"
	"testing"
)

func TestClassifyDuplicate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "email key",
			err:  errors.New("Error 1062 (23000): Duplicate entry 'a@x.com' for key 'users.uq_users_email'"),
			want: ErrEmailExists,
		},
		{
			name: "phone key",
			err:  errors.New("Error 1062 (23000): Duplicate entry '555' for key 'users.uq_users_phone'"),
			want: ErrPhoneExists,
		},
		{
			name: "unrelated error",
			err:  errors.New("Error 2013 (HY000): Lost connection to MySQL server"),
			want: nil,
		},
	}
	for _, tc := range cases {
		got := classifyDuplicate(tc.err)
		if !errors.Is(got, tc.want) && got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

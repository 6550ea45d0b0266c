package expr

// Strlen is the length of each string in x.
func Strlen(x Expr) Expr {
	return Call("length", x)
}

// Strpos is the 0-based position of sub in each string of x, or -1 when absent.
func Strpos(x Expr, sub string) Expr {
	return Sub(Call("strpos", x, MustLit(sub)), MustLit(1))
}

// Substr slices each string of x as s[start:end]. Negative bounds count from
// the end of the string.
func Substr(x Expr, start, end int) Expr {
	from := sliceBound(x, start)
	to := sliceBound(x, end)
	return Call("substring", x, Add(from, MustLit(1)), Call("greatest", Sub(to, from), MustLit(0)))
}

func sliceBound(x Expr, i int) Expr {
	if i >= 0 {
		return MustLit(i)
	}
	return Call("greatest", Add(Strlen(x), MustLit(i)), MustLit(0))
}

// Word extracts the nth space-separated word (0-based) of each string in x.
// Strings with fewer words yield null.
func Word(x Expr, n int) Expr {
	return Call("nullif", Call("split_part", x, MustLit(" "), MustLit(n+1)), MustLit(""))
}

// Upper converts each string in x to upper case.
func Upper(x Expr) Expr {
	return Call("upper", x)
}

// Lower converts each string in x to lower case.
func Lower(x Expr) Expr {
	return Call("lower", x)
}

// Proper capitalizes the first letter of each word in x and lowers the rest.
func Proper(x Expr) Expr {
	return template{
		format: "array_to_string(list_transform(string_split(lower(%s), ' '), w -> concat(upper(left(w, 1)), substr(w, 2))), ' ')",
		args:   []Expr{x},
	}
}

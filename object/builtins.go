package object

// Methods every class and every object gets at registration. A ClassSpec
// may override any of them.

var defaultClassMethods = map[string]ClassMethod{
	"add_signal": func(rt *Runtime, cls *Class, args []Value) ([]Value, error) {
		name, err := CheckString(arg(args, 0))
		if err != nil {
			return nil, err
		}
		log.Warningf("%s.add_signal(%q) is deprecated and does nothing", cls.name, name)
		return nil, nil
	},
	"connect_signal": func(rt *Runtime, cls *Class, args []Value) ([]Value, error) {
		name, err := CheckString(arg(args, 0))
		if err != nil {
			return nil, err
		}
		return nil, rt.ConnectClassSignal(cls, name, arg(args, 1))
	},
	"disconnect_signal": func(rt *Runtime, cls *Class, args []Value) ([]Value, error) {
		name, err := CheckString(arg(args, 0))
		if err != nil {
			return nil, err
		}
		_, err = rt.DisconnectClassSignal(cls, name, arg(args, 1))
		return nil, err
	},
	"emit_signal": func(rt *Runtime, cls *Class, args []Value) ([]Value, error) {
		name, err := CheckString(arg(args, 0))
		if err != nil {
			return nil, err
		}
		rt.EmitClassSignal(cls, name, rest(args, 1)...)
		return nil, nil
	},
	"instances": func(rt *Runtime, cls *Class, args []Value) ([]Value, error) {
		return []Value{cls.Instances()}, nil
	},
	"set_index_miss_handler": func(rt *Runtime, cls *Class, args []Value) ([]Value, error) {
		return nil, rt.SetIndexMissHandler(cls, arg(args, 0))
	},
	"set_newindex_miss_handler": func(rt *Runtime, cls *Class, args []Value) ([]Value, error) {
		return nil, rt.SetNewIndexMissHandler(cls, arg(args, 0))
	},
}

var defaultObjectMethods = map[string]Method{
	"connect_signal": func(rt *Runtime, self Handle, args []Value) ([]Value, error) {
		name, err := CheckString(arg(args, 0))
		if err != nil {
			return nil, err
		}
		return nil, rt.ConnectSignal(self, name, arg(args, 1))
	},
	"disconnect_signal": func(rt *Runtime, self Handle, args []Value) ([]Value, error) {
		name, err := CheckString(arg(args, 0))
		if err != nil {
			return nil, err
		}
		_, err = rt.DisconnectSignal(self, name, arg(args, 1))
		return nil, err
	},
	"emit_signal": func(rt *Runtime, self Handle, args []Value) ([]Value, error) {
		name, err := CheckString(arg(args, 0))
		if err != nil {
			return nil, err
		}
		return nil, rt.EmitSignal(self, name, rest(args, 1)...)
	},
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func rest(args []Value, i int) []Value {
	if i < len(args) {
		return args[i:]
	}
	return nil
}

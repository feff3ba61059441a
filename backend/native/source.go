package native

/*
#include <stddef.h>
#include <stdlib.h>

typedef struct LLVMOpaqueModule *LLVMModuleRef;

void LLVMSetSourceFileName(LLVMModuleRef M, const char *Name, size_t Len);
const char *LLVMGetSourceFileName(LLVMModuleRef M, size_t *Len);
*/
import "C"

import (
	"unsafe"

	"tinygo.org/x/go-llvm"
)

// go-llvm has no wrappers for the module source filename. The symbols are
// resolved against the LLVM libraries go-llvm links.

func moduleRef(m llvm.Module) C.LLVMModuleRef {
	return C.LLVMModuleRef(unsafe.Pointer(m.C))
}

func setSourceFileName(m llvm.Module, name string) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	C.LLVMSetSourceFileName(moduleRef(m), cname, C.size_t(len(name)))
}

func sourceFileName(m llvm.Module) string {
	var n C.size_t
	p := C.LLVMGetSourceFileName(moduleRef(m), &n)
	if p == nil {
		return ""
	}
	return C.GoStringN(p, C.int(n))
}

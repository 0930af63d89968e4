//go:build darwin && cgo

package gpu

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework Metal -framework Foundation

#include <stdint.h>
#include <stdlib.h>
#include <string.h>

#import <Metal/Metal.h>
#import <Foundation/Foundation.h>

typedef struct {
	uint32_t max_threads_per_group;
	uint64_t max_buffer_size;
	uint64_t device_local_memory;
	int      unified;
	char     name[256];
} mtl_caps;

typedef struct {
	void *device;   // id<MTLDevice>
	void *queue;    // id<MTLCommandQueue>
	void *glob_ps;  // id<MTLComputePipelineState> for match_names
	void *regex_ps; // id<MTLComputePipelineState> for regex_match_names
} mtl_ctx;

static void mtl_set_err(char *err, int errlen, NSString *msg) {
	if (err != NULL && errlen > 0) {
		strncpy(err, msg.UTF8String, errlen - 1);
		err[errlen - 1] = 0;
	}
}

static int mtl_init(const char *source, void **out_ctx, mtl_caps *caps,
                    char *err, int errlen) {
	@autoreleasepool {
		id<MTLDevice> device = MTLCreateSystemDefaultDevice();
		if (device == nil) {
			mtl_set_err(err, errlen, @"no Metal device");
			return -1;
		}

		NSError *nserr = nil;
		NSString *src = [NSString stringWithUTF8String:source];
		id<MTLLibrary> lib = [device newLibraryWithSource:src
		                                          options:nil
		                                            error:&nserr];
		if (lib == nil) {
			mtl_set_err(err, errlen, nserr.localizedDescription);
			return -1;
		}

		id<MTLFunction> globFn = [lib newFunctionWithName:@"match_names"];
		id<MTLFunction> regexFn = [lib newFunctionWithName:@"regex_match_names"];
		if (globFn == nil || regexFn == nil) {
			mtl_set_err(err, errlen, @"kernel entry point missing");
			return -1;
		}

		id<MTLComputePipelineState> globPS =
		    [device newComputePipelineStateWithFunction:globFn error:&nserr];
		if (globPS == nil) {
			mtl_set_err(err, errlen, nserr.localizedDescription);
			return -1;
		}
		id<MTLComputePipelineState> regexPS =
		    [device newComputePipelineStateWithFunction:regexFn error:&nserr];
		if (regexPS == nil) {
			mtl_set_err(err, errlen, nserr.localizedDescription);
			return -1;
		}

		id<MTLCommandQueue> queue = [device newCommandQueue];
		if (queue == nil) {
			mtl_set_err(err, errlen, @"command queue creation failed");
			return -1;
		}

		caps->max_threads_per_group =
		    (uint32_t)device.maxThreadsPerThreadgroup.width;
		caps->max_buffer_size = (uint64_t)device.maxBufferLength;
		caps->device_local_memory =
		    (uint64_t)device.recommendedMaxWorkingSetSize;
		caps->unified = device.hasUnifiedMemory ? 1 : 0;
		strncpy(caps->name, device.name.UTF8String, sizeof(caps->name) - 1);
		caps->name[sizeof(caps->name) - 1] = 0;

		mtl_ctx *ctx = (mtl_ctx *)calloc(1, sizeof(mtl_ctx));
		ctx->device = (__bridge_retained void *)device;
		ctx->queue = (__bridge_retained void *)queue;
		ctx->glob_ps = (__bridge_retained void *)globPS;
		ctx->regex_ps = (__bridge_retained void *)regexPS;
		*out_ctx = ctx;
		return 0;
	}
}

static void mtl_destroy(void *p) {
	if (p == NULL) {
		return;
	}
	mtl_ctx *ctx = (mtl_ctx *)p;
	if (ctx->device != NULL) {
		CFRelease(ctx->device);
	}
	if (ctx->queue != NULL) {
		CFRelease(ctx->queue);
	}
	if (ctx->glob_ps != NULL) {
		CFRelease(ctx->glob_ps);
	}
	if (ctx->regex_ps != NULL) {
		CFRelease(ctx->regex_ps);
	}
	free(ctx);
}

// mtl_buffer wraps newBufferWithBytes, tolerating empty uploads: Metal
// rejects zero-length buffers, so a 4-byte zero placeholder stands in.
static id<MTLBuffer> mtl_buffer(id<MTLDevice> device, const void *bytes, int len) {
	static const uint32_t zero = 0;
	if (len <= 0) {
		return [device newBufferWithBytes:&zero
		                           length:sizeof(zero)
		                          options:MTLResourceStorageModeShared];
	}
	return [device newBufferWithBytes:bytes
	                           length:(NSUInteger)len
	                          options:MTLResourceStorageModeShared];
}

static int mtl_dispatch(void *p, int is_regex,
                        const void *config, int config_len,
                        const void *pattern, int pattern_len,
                        const void *names, int names_len,
                        const void *offsets, int offsets_len,
                        const void *lengths, int lengths_len,
                        const void *bitmaps, int bitmaps_len,
                        const void *header, int header_len,
                        uint32_t num_names, uint32_t workgroup,
                        void *results_out, int results_len,
                        uint32_t *count_out,
                        char *err, int errlen) {
	@autoreleasepool {
		mtl_ctx *ctx = (mtl_ctx *)p;
		id<MTLDevice> device = (__bridge id<MTLDevice>)ctx->device;
		id<MTLCommandQueue> queue = (__bridge id<MTLCommandQueue>)ctx->queue;
		id<MTLComputePipelineState> ps = is_regex
		    ? (__bridge id<MTLComputePipelineState>)ctx->regex_ps
		    : (__bridge id<MTLComputePipelineState>)ctx->glob_ps;

		id<MTLBuffer> configBuf = mtl_buffer(device, config, config_len);
		id<MTLBuffer> patternBuf = mtl_buffer(device, pattern, pattern_len);
		id<MTLBuffer> namesBuf = mtl_buffer(device, names, names_len);
		id<MTLBuffer> offsetsBuf = mtl_buffer(device, offsets, offsets_len);
		id<MTLBuffer> lengthsBuf = mtl_buffer(device, lengths, lengths_len);
		id<MTLBuffer> resultsBuf =
		    [device newBufferWithLength:(NSUInteger)results_len
		                        options:MTLResourceStorageModeShared];
		id<MTLBuffer> counterBuf =
		    [device newBufferWithLength:sizeof(uint32_t)
		                        options:MTLResourceStorageModeShared];
		if (resultsBuf == nil || counterBuf == nil) {
			mtl_set_err(err, errlen, @"buffer allocation failed");
			return -1;
		}
		memset(counterBuf.contents, 0, sizeof(uint32_t));

		id<MTLCommandBuffer> cmd = [queue commandBuffer];
		id<MTLComputeCommandEncoder> enc = [cmd computeCommandEncoder];
		[enc setComputePipelineState:ps];
		[enc setBuffer:configBuf offset:0 atIndex:0];
		[enc setBuffer:patternBuf offset:0 atIndex:1];
		[enc setBuffer:namesBuf offset:0 atIndex:2];
		[enc setBuffer:offsetsBuf offset:0 atIndex:3];
		[enc setBuffer:lengthsBuf offset:0 atIndex:4];
		[enc setBuffer:resultsBuf offset:0 atIndex:5];
		[enc setBuffer:counterBuf offset:0 atIndex:6];
		if (is_regex) {
			id<MTLBuffer> bitmapsBuf = mtl_buffer(device, bitmaps, bitmaps_len);
			id<MTLBuffer> headerBuf = mtl_buffer(device, header, header_len);
			[enc setBuffer:bitmapsBuf offset:0 atIndex:7];
			[enc setBuffer:headerBuf offset:0 atIndex:8];
		}

		MTLSize group = MTLSizeMake(workgroup, 1, 1);
		MTLSize grid =
		    MTLSizeMake((num_names + workgroup - 1) / workgroup, 1, 1);
		[enc dispatchThreadgroups:grid threadsPerThreadgroup:group];
		[enc endEncoding];

		[cmd commit];
		[cmd waitUntilCompleted];
		if (cmd.status != MTLCommandBufferStatusCompleted) {
			mtl_set_err(err, errlen,
			            cmd.error != nil ? cmd.error.localizedDescription
			                             : @"command buffer failed");
			return -1;
		}

		memcpy(results_out, resultsBuf.contents, (size_t)results_len);
		memcpy(count_out, counterBuf.contents, sizeof(uint32_t));
		return 0;
	}
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/gpufind/gpufind/glob"
	"github.com/gpufind/gpufind/regex"
)

// MetalDriver dispatches to the system Metal device. All buffers use shared
// storage: Apple Silicon is unified memory, so there are no explicit
// host/device copies beyond the upload memcpy.
type MetalDriver struct {
	ctx  unsafe.Pointer
	caps DeviceCaps
	log  zerolog.Logger
}

// NewMetalDriver probes the default Metal device, compiles the kernel
// library from source, and builds both compute pipelines.
func NewMetalDriver(log zerolog.Logger) (Driver, error) {
	src := C.CString(metalShaderSource)
	defer C.free(unsafe.Pointer(src))

	var (
		ctx    unsafe.Pointer
		ccaps  C.mtl_caps
		errBuf [512]C.char
	)
	if C.mtl_init(src, &ctx, &ccaps, &errBuf[0], C.int(len(errBuf))) != 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, C.GoString(&errBuf[0]))
	}

	caps := DeviceCaps{
		DeviceName:         C.GoString(&ccaps.name[0]),
		MaxThreadsPerGroup: uint32(ccaps.max_threads_per_group),
		MaxBufferSize:      uint64(ccaps.max_buffer_size),
		DeviceLocalMemory:  uint64(ccaps.device_local_memory),
		Unified:            ccaps.unified != 0,
	}
	log.Debug().
		Str("device", caps.DeviceName).
		Uint32("max_threads", caps.MaxThreadsPerGroup).
		Bool("unified", caps.Unified).
		Msg("metal driver initialized")

	return &MetalDriver{ctx: ctx, caps: caps, log: log}, nil
}

// Name implements Driver.
func (*MetalDriver) Name() string { return "metal" }

// Caps implements Driver.
func (d *MetalDriver) Caps() DeviceCaps { return d.caps }

// Close implements Driver.
func (d *MetalDriver) Close() error {
	C.mtl_destroy(d.ctx)
	d.ctx = nil
	return nil
}

// MatchNames implements Driver.
func (d *MetalDriver) MatchNames(b *Batch, p *glob.Pattern) (*DispatchResult, error) {
	cfg := newDispatchConfig(b, len(p.Bytes()), p.Options())
	return d.dispatch(false, cfg, p.Bytes(), b, nil, nil)
}

// MatchRegex implements Driver.
func (d *MetalDriver) MatchRegex(b *Batch, prog *regex.Program) (*DispatchResult, error) {
	cfg := newDispatchConfig(b, len(prog.States)*regex.StateWords*4, 0)
	return d.dispatch(true, cfg, prog.PackBytes(), b,
		prog.BitmapBytes(), prog.Header().HeaderBytes())
}

func (d *MetalDriver) dispatch(isRegex bool, cfg dispatchConfig, pattern []byte,
	b *Batch, bitmaps, header []byte) (*DispatchResult, error) {
	if b.Len() == 0 {
		return &DispatchResult{}, nil
	}

	cfgBytes := cfg.bytes()
	offsets := u32Bytes(b.Offsets())
	lengths := u32Bytes(b.Lengths())
	results := make([]byte, b.Len()*8)
	var count C.uint32_t

	regexFlag := C.int(0)
	if isRegex {
		regexFlag = 1
	}

	var errBuf [512]C.char
	rc := C.mtl_dispatch(d.ctx, regexFlag,
		ptr(cfgBytes), C.int(len(cfgBytes)),
		ptr(pattern), C.int(len(pattern)),
		ptr(b.NamesData()), C.int(len(b.NamesData())),
		ptr(offsets), C.int(len(offsets)),
		ptr(lengths), C.int(len(lengths)),
		ptr(bitmaps), C.int(len(bitmaps)),
		ptr(header), C.int(len(header)),
		C.uint32_t(b.Len()), C.uint32_t(WorkgroupSize),
		ptr(results), C.int(len(results)),
		&count,
		&errBuf[0], C.int(len(errBuf)))
	if rc != 0 {
		return nil, fmt.Errorf("%w: %s", ErrDispatchFailed, C.GoString(&errBuf[0]))
	}

	return &DispatchResult{
		Results: decodeResults(results, b.Len()),
		Count:   uint32(count),
	}, nil
}
